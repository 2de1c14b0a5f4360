// Package httpapi exposes the Workspace lifecycle (Create/Populate/Run/
// Destroy) as HTTP routes on an echo/v5 router, the same router type
// main.go's PocketBase ServeEvent hands a composition root. Route
// registration is deliberately framework-agnostic about PocketBase itself:
// it only needs an *echo.Group, so it mounts equally well under
// app.RouterGroup or a bare echo.New() in tests.
package httpapi

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v5"

	"trailnet/internal/model"
	"trailnet/internal/pipeline"
	"trailnet/internal/store"
	"trailnet/internal/workspace"
)

// Registry tracks live workspaces by id so a later Populate/Run/Destroy
// call can find the one an earlier Create call opened. The pipeline itself
// has no notion of "current workspace" — that's this package's job, not
// pipeline.Manager's.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*workspace.Workspace
}

// NewRegistry returns an empty workspace Registry.
func NewRegistry() *Registry {
	return &Registry{workspaces: make(map[string]*workspace.Workspace)}
}

func (r *Registry) put(ws *workspace.Workspace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaces[ws.ID] = ws
}

func (r *Registry) get(id string) (*workspace.Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	return ws, ok
}

func (r *Registry) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, id)
}

// API wires a pipeline.Manager, a Registry and the configured
// store.TrailSource/NetworkSink pair to a set of routes.
type API struct {
	mgr      *pipeline.Manager
	registry *Registry
	source   store.TrailSource
	sink     store.NetworkSink
}

// New builds an API. sink may be nil if the deployment only wants Run's
// in-response result and never pushes to a NetworkSink.
func New(mgr *pipeline.Manager, registry *Registry, source store.TrailSource, sink store.NetworkSink) *API {
	return &API{mgr: mgr, registry: registry, source: source, sink: sink}
}

// Register mounts every route under group, one per lifecycle operation:
//
//	POST   /workspaces              Create
//	POST   /workspaces/:id/populate Populate
//	POST   /workspaces/:id/run      Run (+ Emit if a sink is configured)
//	DELETE /workspaces/:id          Destroy
func (a *API) Register(group *echo.Group) {
	group.POST("/workspaces", a.handleCreate)
	group.POST("/workspaces/:id/populate", a.handlePopulate)
	group.POST("/workspaces/:id/run", a.handleRun)
	group.DELETE("/workspaces/:id", a.handleDestroy)
}

func (a *API) handleCreate(c echo.Context) error {
	ws, err := a.mgr.Create(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	a.registry.put(ws)
	return c.JSON(http.StatusCreated, map[string]string{"workspace_id": ws.ID})
}

type populateRequest struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

func (a *API) handlePopulate(c echo.Context) error {
	ws, ok := a.registry.get(c.PathParam("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown workspace")
	}

	var req populateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	bbox := model.BoundingBox{MinLon: req.MinLon, MinLat: req.MinLat, MaxLon: req.MaxLon, MaxLat: req.MaxLat}

	count, report, err := a.mgr.Populate(c.Request().Context(), ws, a.source, bbox)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"trails_staged":  count,
		"input_warnings": len(report.Errors),
	})
}

func (a *API) handleRun(c echo.Context) error {
	ws, ok := a.registry.get(c.PathParam("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown workspace")
	}

	result, err := a.mgr.Run(c.Request().Context(), ws)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	emitted := false
	if a.sink != nil {
		if err := a.mgr.Emit(c.Request().Context(), a.sink, result); err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		emitted = true
	}

	network := result.Network()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"node_count": len(network.Nodes),
		"edge_count": len(network.Edges),
		"violations": network.Violations,
		"counters":   network.Counters,
		"emitted":    emitted,
	})
}

func (a *API) handleDestroy(c echo.Context) error {
	id := c.PathParam("id")
	ws, ok := a.registry.get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown workspace")
	}
	if err := a.mgr.Destroy(ws); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	a.registry.delete(id)
	return c.NoContent(http.StatusNoContent)
}
