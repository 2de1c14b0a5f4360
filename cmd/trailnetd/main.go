// Command trailnetd is the composition root: it wires configuration, the
// PocketBase-backed trail store, the pipeline orchestrator, and the HTTP
// lifecycle API together (pocketbase.New, OnBeforeServe collection setup,
// CORS middleware on the router).
package main

import (
	"log"
	"os"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/daos"
	"github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"

	"trailnet/internal/config"
	"trailnet/internal/httpapi"
	"trailnet/internal/pipevents"
	"trailnet/internal/pipeline"
	"trailnet/internal/store"
	"trailnet/internal/store/gpxsource"
	pbstore "trailnet/internal/store/pocketbase"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	app := pocketbase.New()
	mgr := pipeline.NewManager(cfg, pipevents.NewDispatcher())
	registry := httpapi.NewRegistry()

	app.OnBeforeServe().Add(func(e *core.ServeEvent) error {
		if err := ensureNetworkCollections(app); err != nil {
			return err
		}

		source := resolveSource(app, cfg)
		sink := pbstore.NewSink(app.Dao())
		api := httpapi.New(mgr, registry, source, sink)

		e.Router.Use(apis.ActivityLogger(app))
		e.Router.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Response().Header().Set("Access-Control-Allow-Origin", "*")
				c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				if c.Request().Method == "OPTIONS" {
					return c.NoContent(204)
				}
				return next(c)
			}
		})

		group := e.Router.Group("/api/trailnet")
		api.Register(group)
		return nil
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// resolveSource picks the PocketBase trails collection as the input
// TrailSource unless TRAILNET_GPX_DIR names a directory of GPX files,
// the escape hatch for local development and fixtures without a
// populated trails collection.
func resolveSource(app *pocketbase.PocketBase, cfg *config.Config) store.TrailSource {
	if dir := os.Getenv("TRAILNET_GPX_DIR"); dir != "" {
		return gpxsource.New(dir, cfg.SourceTag)
	}
	return pbstore.NewSource(app.Dao())
}

func ensureNetworkCollections(app *pocketbase.PocketBase) error {
	if err := ensureCollection(app.Dao(), pbstore.NodesCollection, []*schema.SchemaField{
		{Name: "node_id", Type: schema.FieldTypeNumber, Required: true},
		{Name: "lon", Type: schema.FieldTypeNumber, Required: true},
		{Name: "lat", Type: schema.FieldTypeNumber, Required: true},
		{Name: "elev", Type: schema.FieldTypeNumber, Required: false},
		{Name: "degree", Type: schema.FieldTypeNumber, Required: true},
	}); err != nil {
		return err
	}

	if err := ensureCollection(app.Dao(), pbstore.EdgesCollection, []*schema.SchemaField{
		{Name: "edge_id", Type: schema.FieldTypeNumber, Required: true},
		{Name: "source_node", Type: schema.FieldTypeNumber, Required: true},
		{Name: "target_node", Type: schema.FieldTypeNumber, Required: true},
		{Name: "geometry_wkt", Type: schema.FieldTypeText, Required: true},
		{Name: "length_m", Type: schema.FieldTypeNumber, Required: true},
		{Name: "elev_gain", Type: schema.FieldTypeNumber, Required: false},
		{Name: "elev_loss", Type: schema.FieldTypeNumber, Required: false},
		{Name: "name", Type: schema.FieldTypeText, Required: false},
		{Name: "surface", Type: schema.FieldTypeText, Required: false},
		{Name: "difficulty", Type: schema.FieldTypeText, Required: false},
		{Name: "trail_type", Type: schema.FieldTypeText, Required: false},
	}); err != nil {
		return err
	}

	return ensureCollection(app.Dao(), pbstore.CompositionCollection, []*schema.SchemaField{
		{Name: "edge_id", Type: schema.FieldTypeNumber, Required: true},
		{Name: "segment_seq", Type: schema.FieldTypeNumber, Required: true},
		{Name: "split_segment_id", Type: schema.FieldTypeText, Required: true},
		{Name: "origin_id", Type: schema.FieldTypeText, Required: true},
		{Name: "start_ratio", Type: schema.FieldTypeNumber, Required: true},
		{Name: "end_ratio", Type: schema.FieldTypeNumber, Required: true},
		{Name: "length_m", Type: schema.FieldTypeNumber, Required: true},
	})
}

func ensureCollection(dao *daos.Dao, name string, fields []*schema.SchemaField) error {
	if _, err := dao.FindCollectionByNameOrId(name); err == nil {
		return nil
	}

	collection := &models.Collection{}
	collection.Name = name
	collection.Type = models.CollectionTypeBase
	publicRule := ""
	collection.ListRule = &publicRule
	collection.ViewRule = &publicRule
	collection.Schema = schema.NewSchema(fields...)

	if err := dao.SaveCollection(collection); err != nil {
		return err
	}
	log.Printf("created %s collection", name)
	return nil
}
