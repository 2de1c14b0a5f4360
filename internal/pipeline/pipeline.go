// Package pipeline implements the workspace lifecycle: Create/Populate/Run/
// Destroy, scoped acquisition with guaranteed release, orchestrating the
// normalize/detect/split/node/merge/validate stages in data-flow order. The
// normalize stage fans out one goroutine per trail under a sync.WaitGroup,
// each worker writing its outcome into its own slot of a results slice.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/geom"
	"trailnet/internal/intersect"
	"trailnet/internal/merge"
	"trailnet/internal/model"
	"trailnet/internal/node"
	"trailnet/internal/normalize"
	"trailnet/internal/pipevents"
	"trailnet/internal/split"
	"trailnet/internal/store"
	"trailnet/internal/validate"
	"trailnet/internal/workspace"
)

// Manager implements the Workspace lifecycle surface: Create, Populate,
// Run, Destroy. It holds no per-run state itself — every run's state lives
// in the Workspace the caller threads through the four calls.
type Manager struct {
	cfg    *config.Config
	events *pipevents.Dispatcher
}

// NewManager builds a Manager bound to cfg, publishing StageCompletedEvents
// to events (pass pipevents.NewDispatcher() if the caller doesn't need to
// observe progress).
func NewManager(cfg *config.Config, events *pipevents.Dispatcher) *Manager {
	return &Manager{cfg: cfg, events: events}
}

// Create allocates a fresh, empty Workspace. Failure is fatal to the
// pipeline: callers may not retry workspace creation in-place.
func (m *Manager) Create(ctx context.Context) (*workspace.Workspace, error) {
	ws, err := workspace.Create(ctx, m.cfg)
	if err != nil {
		return nil, errs.Resource("", "create workspace", err)
	}
	return ws, nil
}

// Destroy tears down ws, removing every derived artifact. Safe to call
// more than once; callers typically defer this immediately after Create.
func (m *Manager) Destroy(ws *workspace.Workspace) error {
	if err := ws.Destroy(); err != nil {
		return errs.Resource(ws.ID, "destroy workspace", err)
	}
	return nil
}

// Populate copies every trail src yields for bbox/sourceTag into ws. Input
// rows with fewer than two coordinates are reported as InputError and
// skipped rather than staged; everything else is copied in as-is (full
// normalization is Run's first stage, not Populate's job).
func (m *Manager) Populate(ctx context.Context, ws *workspace.Workspace, src store.TrailSource, bbox model.BoundingBox) (int, *errs.Report, error) {
	report := errs.NewReport()
	count := 0
	err := src.Stream(ctx, bbox, m.cfg.SourceTag, func(t model.Trail) (bool, error) {
		if len(t.Geometry) < 2 {
			report.Add(errs.Input(t.SourceID, "trail has fewer than 2 points", nil))
			return true, nil
		}
		if err := ws.PutTrail(ctx, t); err != nil {
			return false, err
		}
		count++
		return true, nil
	})
	if err != nil {
		return count, report, errs.Resource(ws.ID, "populate workspace", err)
	}
	return count, report, nil
}

// Result is Run's successful output: the final network plus the
// accumulated recoverable-error reports and violations manifest from every
// stage, counters included.
type Result struct {
	Nodes      []model.Node
	Edges      []model.Edge
	Manifest   *validate.Manifest
	Counters   map[string]int
	Normalize  *errs.Report
	Split      *errs.Report
	MergeWarns []*errs.Error
}

// Network converts the run's outcome into the store.NetworkResult shape
// external consumers receive: the final network plus a flat violations
// manifest and the per-stage counters.
func (r *Result) Network() store.NetworkResult {
	violations := make([]string, 0, len(r.Manifest.Violations))
	for _, v := range r.Manifest.Violations {
		violations = append(violations, v.Subject+": "+v.Message)
	}
	return store.NetworkResult{
		Nodes:      r.Nodes,
		Edges:      r.Edges,
		Violations: violations,
		Counters:   r.Counters,
	}
}

// Run executes the full network-building pipeline against ws's staged
// trails, in order: normalize -> detect -> split -> normalize -> node ->
// merge -> validate; writing the result to a sink is Emit's job. Each
// stage runs under its own
// cfg.StageTimeoutS wall-clock budget; a stage timeout marks the run
// non-viable and skips the validator. Cancellation is only observed
// between stages, never mid-merge-pass.
func (m *Manager) Run(ctx context.Context, ws *workspace.Workspace) (*Result, error) {
	counters := map[string]int{}

	normReport, err := m.stageNormalizeTrails(ctx, ws)
	if err != nil {
		return nil, err
	}
	counters["normalize_dropped"] = len(normReport.Errors)
	m.publish(ctx, "normalize", counters)

	trails, err := listTrailsTimed(ctx, ws, m.cfg.StageTimeoutS)
	if err != nil {
		return nil, errs.Resource(ws.ID, "list normalized trails", err)
	}
	counters["trails"] = len(trails)

	points, err := m.stageDetect(ctx, ws, trails)
	if err != nil {
		return nil, err
	}
	counters["intersection_points"] = len(points)
	m.publish(ctx, "detect", counters)

	segments, splitReport, err := m.stageSplit(ctx, ws, trails, points)
	if err != nil {
		return nil, err
	}
	counters["split_segments"] = len(segments)
	counters["split_abandoned"] = len(splitReport.Errors)
	m.publish(ctx, "split", counters)

	segments, err = m.stageRenormalizeSegments(ctx, ws, segments)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, "normalize_post_split", counters)

	nodes, edges, err := m.stageNode(ctx, ws, segments)
	if err != nil {
		return nil, err
	}
	counters["nodes"] = len(nodes)
	counters["edges"] = len(edges)
	m.publish(ctx, "node", counters)

	finalNodes, finalEdges, mergeWarns, reportedCycleNodes, err := m.stageMerge(ctx, ws, nodes, edges)
	if err != nil {
		return nil, err
	}
	counters["final_nodes"] = len(finalNodes)
	counters["final_edges"] = len(finalEdges)
	counters["merge_warnings"] = len(mergeWarns)
	counters["isolated_cycle_nodes"] = len(reportedCycleNodes)
	m.publish(ctx, "merge", counters)

	manifest, vErr := validate.Validate(m.cfg, finalNodes, finalEdges, segments, reportedCycleNodes)
	counters["violations"] = len(manifest.Violations)
	m.publish(ctx, "validate", counters)
	if vErr != nil {
		return &Result{
			Nodes: finalNodes, Edges: finalEdges, Manifest: manifest, Counters: counters,
			Normalize: normReport, Split: splitReport, MergeWarns: mergeWarns,
		}, vErr
	}

	return &Result{
		Nodes: finalNodes, Edges: finalEdges, Manifest: manifest, Counters: counters,
		Normalize: normReport, Split: splitReport, MergeWarns: mergeWarns,
	}, nil
}

func (m *Manager) publish(ctx context.Context, stage string, counters map[string]int) {
	if m.events == nil {
		return
	}
	snapshot := make(map[string]int, len(counters))
	for k, v := range counters {
		snapshot[k] = v
	}
	_ = m.events.Publish(ctx, pipevents.StageCompletedEvent{Stage: stage, Counts: snapshot})
}

func (m *Manager) withStageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(m.cfg.StageTimeoutS)*time.Second)
}

// stageNormalizeTrails normalizes every staged trail concurrently (each
// trail normalizes independently), writing survivors back and deleting
// those that fall below the length floor.
func (m *Manager) stageNormalizeTrails(ctx context.Context, ws *workspace.Workspace) (*errs.Report, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	trails, err := ws.ListTrails(sctx)
	if err != nil {
		return nil, errs.Resource(ws.ID, "list trails for normalize", err)
	}

	type outcome struct {
		trail   model.Trail
		dropped bool
		sid     string
		err     *errs.Error
	}
	results := make([]outcome, len(trails))
	var wg sync.WaitGroup
	for i, t := range trails {
		wg.Add(1)
		go func(i int, t model.Trail) {
			defer wg.Done()
			res, err := normalize.Normalize(m.cfg, t)
			if err != nil {
				ae, _ := err.(*errs.Error)
				results[i] = outcome{sid: t.SourceID, err: ae}
				return
			}
			results[i] = outcome{trail: res.Trail, dropped: res.Dropped, sid: t.SourceID}
		}(i, t)
	}
	wg.Wait()

	report := errs.NewReport()
	for _, r := range results {
		if sctx.Err() != nil {
			return nil, errs.Resource(ws.ID, "normalize stage timed out", sctx.Err())
		}
		if r.err != nil {
			report.Add(r.err)
			if err := ws.DeleteTrail(sctx, r.sid); err != nil {
				return nil, errs.Resource(ws.ID, "delete invalid trail", err)
			}
			continue
		}
		if r.dropped {
			report.Add(errs.Input(r.sid, "dropped during normalization", nil))
			if err := ws.DeleteTrail(sctx, r.sid); err != nil {
				return nil, errs.Resource(ws.ID, "delete dropped trail", err)
			}
			continue
		}
		if err := ws.PutTrail(sctx, r.trail); err != nil {
			return nil, errs.Resource(ws.ID, "write normalized trail", err)
		}
	}
	return report, nil
}

func (m *Manager) stageDetect(ctx context.Context, ws *workspace.Workspace, trails []model.Trail) ([]model.IntersectionPoint, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	points := intersect.Detect(m.cfg, trails)
	if sctx.Err() != nil {
		return nil, errs.Resource(ws.ID, "detect stage timed out", sctx.Err())
	}

	if err := ws.ClearIntersectionPoints(sctx); err != nil {
		return nil, errs.Resource(ws.ID, "clear intersection points", err)
	}
	for _, p := range points {
		if err := ws.PutIntersectionPoint(sctx, p); err != nil {
			return nil, errs.Resource(ws.ID, "write intersection point", err)
		}
	}
	return points, nil
}

func (m *Manager) stageSplit(ctx context.Context, ws *workspace.Workspace, trails []model.Trail, points []model.IntersectionPoint) ([]model.SplitSegment, *errs.Report, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	segments, report := split.Split(m.cfg, trails, points)
	if sctx.Err() != nil {
		return nil, nil, errs.Resource(ws.ID, "split stage timed out", sctx.Err())
	}
	for _, s := range segments {
		if err := ws.PutSplitSegment(sctx, s); err != nil {
			return nil, nil, errs.Resource(ws.ID, "write split segment", err)
		}
	}
	return segments, report, nil
}

// stageRenormalizeSegments is the second, lighter normalize pass the data
// flow calls for after splitting: collapse any duplicate vertex a new cut
// introduced, without re-applying the length floor (the splitter already
// enforced it) or re-simplifying.
func (m *Manager) stageRenormalizeSegments(ctx context.Context, ws *workspace.Workspace, segments []model.SplitSegment) ([]model.SplitSegment, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	out := make([]model.SplitSegment, 0, len(segments))
	for _, s := range segments {
		repaired := normalize.RepairCoords(m.cfg, s.Geometry)
		if len(repaired) < 2 {
			continue // collapsed entirely; shouldn't happen, but never node a degenerate segment
		}
		length, err := geom.LengthM(repaired)
		if err != nil {
			continue
		}
		s.Geometry = repaired
		s.LengthM = length
		if err := ws.PutSplitSegment(sctx, s); err != nil {
			return nil, errs.Resource(ws.ID, "write repaired split segment", err)
		}
		out = append(out, s)
	}
	if sctx.Err() != nil {
		return nil, errs.Resource(ws.ID, "normalize_post_split stage timed out", sctx.Err())
	}
	return out, nil
}

func (m *Manager) stageNode(ctx context.Context, ws *workspace.Workspace, segments []model.SplitSegment) ([]model.Node, []model.Edge, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	res := node.Node(m.cfg, segments)
	if sctx.Err() != nil {
		return nil, nil, errs.Resource(ws.ID, "node stage timed out", sctx.Err())
	}
	for _, n := range res.Nodes {
		if err := ws.PutNode(sctx, n); err != nil {
			return nil, nil, errs.Resource(ws.ID, "write node", err)
		}
	}
	for _, e := range res.Edges {
		if err := ws.PutEdge(sctx, e); err != nil {
			return nil, nil, errs.Resource(ws.ID, "write edge", err)
		}
	}
	return res.Nodes, res.Edges, nil
}

func (m *Manager) stageMerge(ctx context.Context, ws *workspace.Workspace, nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, []*errs.Error, []int64, error) {
	sctx, cancel := m.withStageTimeout(ctx)
	defer cancel()

	result := merge.Merge(m.cfg, nodes, edges)

	preIDs := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		preIDs[n.ID] = true
	}
	postIDs := make(map[int64]bool, len(result.Nodes))
	for _, n := range result.Nodes {
		postIDs[n.ID] = true
	}
	for id := range preIDs {
		if !postIDs[id] {
			if err := ws.DeleteNode(sctx, id); err != nil {
				return nil, nil, nil, nil, errs.Resource(ws.ID, "delete merged-away node", err)
			}
		}
	}
	for _, n := range result.Nodes {
		if preIDs[n.ID] {
			if err := ws.SetNodeDegree(sctx, n.ID, n.Degree); err != nil {
				return nil, nil, nil, nil, errs.Resource(ws.ID, "update node degree", err)
			}
			continue
		}
		// A synthetic node minted during an isolated-cycle split has no
		// pre-merge row to update, so it must be inserted.
		if err := ws.PutNode(sctx, n); err != nil {
			return nil, nil, nil, nil, errs.Resource(ws.ID, "write synthetic merge node", err)
		}
	}

	oldEdgeIDs := make([]int64, 0, len(edges))
	for _, e := range edges {
		oldEdgeIDs = append(oldEdgeIDs, e.ID)
	}
	if err := ws.ReplaceEdges(sctx, oldEdgeIDs, result.Edges); err != nil {
		return nil, nil, nil, nil, errs.Resource(ws.ID, "replace edges with merged edges", err)
	}

	if sctx.Err() != nil {
		return nil, nil, nil, nil, errs.Resource(ws.ID, "merge stage timed out", sctx.Err())
	}
	return result.Nodes, result.Edges, result.Warnings, result.IsolatedCycleNodeIDs, nil
}

func listTrailsTimed(ctx context.Context, ws *workspace.Workspace, timeoutS int) ([]model.Trail, error) {
	sctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutS)*time.Second)
	defer cancel()
	trails, err := ws.ListTrails(sctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(trails, func(i, j int) bool { return trails[i].SourceID < trails[j].SourceID })
	return trails, nil
}

// Emit writes Run's result to sink as two atomic batches (nodes, then
// edges-with-composition), satisfying the "accept all rows or none per
// batch" contract store.NetworkSink requires.
func (m *Manager) Emit(ctx context.Context, sink store.NetworkSink, result *Result) error {
	if err := sink.PutNodes(ctx, result.Nodes); err != nil {
		return errs.Sink("", "put nodes batch", err)
	}
	if err := sink.PutEdges(ctx, result.Edges); err != nil {
		return errs.Sink("", "put edges batch", err)
	}
	return nil
}
