package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/config"
	"trailnet/internal/geom"
	"trailnet/internal/model"
	"trailnet/internal/pipevents"
	"trailnet/internal/store"
)

// memSource is an in-memory store.TrailSource used to drive full pipeline
// runs against literal fixture geometries.
type memSource struct {
	trails []model.Trail
}

func (m *memSource) Count(ctx context.Context, bbox model.BoundingBox, sourceTag string) (uint64, error) {
	return uint64(len(m.trails)), nil
}

func (m *memSource) Stream(ctx context.Context, bbox model.BoundingBox, sourceTag string, yield func(model.Trail) (bool, error)) error {
	for _, t := range m.trails {
		cont, err := yield(t)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

var _ store.TrailSource = (*memSource)(nil)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		IntersectionToleranceM:  3.0,
		MinSegmentLengthM:       1.0,
		GridCellDeg:             1e-6,
		DedupToleranceFrac:      0.01,
		SplitRatioEpsilon:       0.001,
		MaxDegree2Iterations:    10,
		SimplifyVertexThreshold: 10,
		StrictValidation:        true,
		StageTimeoutS:           60,
		WorkspaceDir:            t.TempDir(),
	}
}

// mdeg converts a meter offset near the equator into degrees, so fixture
// geometries can be written in meter distances.
func mdeg(meters float64) float64 {
	return meters / 111320.0
}

func fixtureTrail(id string, coords ...model.Coord) model.Trail {
	return model.Trail{
		SourceID:   id,
		Name:       id,
		Surface:    "dirt",
		Difficulty: model.DifficultyModerate,
		TrailType:  model.TrailTypeHiking,
		Source:     "test",
		Geometry:   coords,
	}
}

func runNetwork(t *testing.T, cfg *config.Config, trails []model.Trail) *Result {
	t.Helper()
	ctx := context.Background()
	mgr := NewManager(cfg, pipevents.NewDispatcher())

	ws, err := mgr.Create(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy(ws) })

	bbox := model.BoundingBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}
	staged, report, err := mgr.Populate(ctx, ws, &memSource{trails: trails}, bbox)
	require.NoError(t, err)
	require.False(t, report.HasErrors())
	require.Equal(t, len(trails), staged)

	result, err := mgr.Run(ctx, ws)
	require.NoError(t, err)
	return result
}

func degreeCounts(nodes []model.Node) map[int]int {
	out := make(map[int]int)
	for _, n := range nodes {
		out[n.Degree]++
	}
	return out
}

func inputLengthSum(t *testing.T, result *Result, trails []model.Trail) (edges, input float64) {
	t.Helper()
	for _, e := range result.Edges {
		edges += e.LengthM
	}
	for _, tr := range trails {
		l, err := geom.LengthM(tr.Geometry)
		require.NoError(t, err)
		input += l
	}
	return edges, input
}

// TestRunPerpendicularT: a vertical trail met by a horizontal trail whose
// endpoint stops just short of it. One
// intersection point, the vertical trail split in two, the visitor's
// endpoint snapped onto the junction.
func TestRunPerpendicularT(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
		fixtureTrail("b",
			model.Coord{Lon: -mdeg(1000), Lat: mdeg(50)},
			model.Coord{Lon: -mdeg(0.5), Lat: mdeg(50)}),
	}

	result := runNetwork(t, testConfig(t), trails)

	assert.Equal(t, 1, result.Counters["intersection_points"])
	require.Len(t, result.Edges, 3)
	require.Len(t, result.Nodes, 4)
	assert.Equal(t, map[int]int{1: 3, 3: 1}, degreeCounts(result.Nodes))
	assert.True(t, result.Manifest.Clean())

	edgeSum, inputSum := inputLengthSum(t, result, trails)
	assert.InEpsilon(t, inputSum, edgeSum, 1e-3, "length conservation")
}

// TestRunNearMissY: an endpoint 1.8m from another trail's interior joins
// at tolerance 3m and stays disconnected at tolerance 1m.
func TestRunNearMissY(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
		fixtureTrail("b",
			model.Coord{Lon: mdeg(1.8), Lat: mdeg(50)},
			model.Coord{Lon: mdeg(80), Lat: mdeg(50)}),
	}

	result := runNetwork(t, testConfig(t), trails)
	assert.Equal(t, 1, result.Counters["intersection_points"])
	assert.Len(t, result.Edges, 3)
	assert.Equal(t, map[int]int{1: 3, 3: 1}, degreeCounts(result.Nodes))

	loose := testConfig(t)
	loose.IntersectionToleranceM = 1.0
	disconnected := runNetwork(t, loose, trails)
	assert.Equal(t, 0, disconnected.Counters["intersection_points"])
	assert.Len(t, disconnected.Edges, 2)
	assert.Equal(t, map[int]int{1: 4}, degreeCounts(disconnected.Nodes))
}

// TestRunDegree2ChainCollapse: three fragments meeting only each other
// end as one edge with two trailhead nodes and a three-row composition.
func TestRunDegree2ChainCollapse(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("t1",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(50)}),
		fixtureTrail("t2",
			model.Coord{Lon: 0, Lat: mdeg(50)},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
		fixtureTrail("t3",
			model.Coord{Lon: 0, Lat: mdeg(100)},
			model.Coord{Lon: 0, Lat: mdeg(150)}),
	}

	result := runNetwork(t, testConfig(t), trails)

	require.Len(t, result.Edges, 1)
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, map[int]int{1: 2}, degreeCounts(result.Nodes))

	merged := result.Edges[0]
	require.Len(t, merged.Composition, 3)
	assert.Equal(t, "t1", merged.Composition[0].OriginID)
	assert.Equal(t, "t2", merged.Composition[1].OriginID)
	assert.Equal(t, "t3", merged.Composition[2].OriginID)
	assert.Equal(t, 0.0, merged.Composition[0].StartRatio)
	assert.InDelta(t, 1.0, merged.Composition[2].EndRatio, 1e-9)
	assert.InDelta(t, 150.0, merged.LengthM, 1.0)
}

// TestRunExactCrossing: two diagonals crossing at their shared midpoint
// produce a single degree-4 junction and four edges.
func TestRunExactCrossing(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: mdeg(100), Lat: mdeg(100)}),
		fixtureTrail("b",
			model.Coord{Lon: 0, Lat: mdeg(100)},
			model.Coord{Lon: mdeg(100), Lat: 0}),
	}

	result := runNetwork(t, testConfig(t), trails)

	assert.Equal(t, 1, result.Counters["intersection_points"])
	assert.Len(t, result.Edges, 4)
	require.Len(t, result.Nodes, 5)
	assert.Equal(t, map[int]int{1: 4, 4: 1}, degreeCounts(result.Nodes))
	assert.True(t, result.Manifest.Clean())
}

// TestRunMicroSliverAvoidance: an endpoint 0.3m from another trail's
// endpoint is fused rather than split, leaving a degree-2 node the merger
// then collapses away.
func TestRunMicroSliverAvoidance(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
		fixtureTrail("b",
			model.Coord{Lon: mdeg(0.3), Lat: mdeg(100)},
			model.Coord{Lon: mdeg(60), Lat: mdeg(150)}),
	}

	result := runNetwork(t, testConfig(t), trails)

	assert.Equal(t, 1, result.Counters["intersection_points"])
	require.Len(t, result.Edges, 1)
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, map[int]int{1: 2}, degreeCounts(result.Nodes))
	require.Len(t, result.Edges[0].Composition, 2)
	assert.True(t, result.Manifest.Clean())
}

// TestRunIsolatedCycle: a closed loop with no neighbors survives as two
// arcs between two synthetic nodes, reported rather than failed even in
// strict mode.
func TestRunIsolatedCycle(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("loop",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: mdeg(50), Lat: 0},
			model.Coord{Lon: mdeg(50), Lat: mdeg(50)},
			model.Coord{Lon: 0, Lat: mdeg(50)},
			model.Coord{Lon: 0, Lat: 0}),
	}

	result := runNetwork(t, testConfig(t), trails)

	require.Len(t, result.Edges, 2)
	require.Len(t, result.Nodes, 2)
	for _, e := range result.Edges {
		assert.NotEqual(t, e.Source, e.Target)
	}
	assert.Equal(t, map[int]int{2: 2}, degreeCounts(result.Nodes))
	assert.Len(t, result.Manifest.ReportedCycles, 2)
	assert.True(t, result.Manifest.Clean())
}

// TestRunDeterministic: the same input and config produce identical
// nodes, edges, and composition across two fresh workspaces.
func TestRunDeterministic(t *testing.T) {
	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: mdeg(100), Lat: mdeg(100)}),
		fixtureTrail("b",
			model.Coord{Lon: 0, Lat: mdeg(100)},
			model.Coord{Lon: mdeg(100), Lat: 0}),
		fixtureTrail("c",
			model.Coord{Lon: -mdeg(1000), Lat: mdeg(50)},
			model.Coord{Lon: -mdeg(0.5), Lat: mdeg(50)}),
	}

	first := runNetwork(t, testConfig(t), trails)
	second := runNetwork(t, testConfig(t), trails)

	require.Equal(t, first.Nodes, second.Nodes)
	require.Equal(t, first.Edges, second.Edges)
}

// TestPopulateReportsDegenerateInputRows: rows with fewer than two points
// are reported per-row and skipped; the pipeline continues with the rest.
func TestPopulateReportsDegenerateInputRows(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	mgr := NewManager(cfg, pipevents.NewDispatcher())

	ws, err := mgr.Create(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy(ws) })

	trails := []model.Trail{
		fixtureTrail("bad", model.Coord{Lon: 0, Lat: 0}),
		fixtureTrail("good",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
	}
	bbox := model.BoundingBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}
	staged, report, err := mgr.Populate(ctx, ws, &memSource{trails: trails}, bbox)
	require.NoError(t, err)
	assert.Equal(t, 1, staged)
	require.True(t, report.HasErrors())
	assert.Equal(t, "bad", report.Errors[0].Subject)
}

// TestStageEventsArePublished verifies the dispatcher sees one event per
// stage in pipeline order.
func TestStageEventsArePublished(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	var stages []string
	events := pipevents.NewDispatcher()
	events.Subscribe(func(ctx context.Context, ev pipevents.StageCompletedEvent) error {
		stages = append(stages, ev.Stage)
		return nil
	})

	mgr := NewManager(cfg, events)
	ws, err := mgr.Create(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Destroy(ws) })

	trails := []model.Trail{
		fixtureTrail("a",
			model.Coord{Lon: 0, Lat: 0},
			model.Coord{Lon: 0, Lat: mdeg(100)}),
	}
	bbox := model.BoundingBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}
	_, _, err = mgr.Populate(ctx, ws, &memSource{trails: trails}, bbox)
	require.NoError(t, err)
	_, err = mgr.Run(ctx, ws)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"normalize", "detect", "split", "normalize_post_split", "node", "merge", "validate",
	}, stages)
}
