package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/config"
	"trailnet/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{GridCellDeg: 1e-6, MaxDegree2Iterations: 10}
}

func coord(lon, lat float64) model.Coord { return model.Coord{Lon: lon, Lat: lat} }

func straightEdge(id, src, dst int64, from, to model.Coord) model.Edge {
	geometry := []model.Coord{from, to}
	return model.Edge{
		ID: id, Source: src, Target: dst, Geometry: geometry, LengthM: 50,
		Name: "t", Surface: "dirt", Difficulty: model.DifficultyEasy, TrailType: model.TrailTypeHiking,
		Composition: []model.CompositionRow{{
			SplitSegmentID: "seg", OriginID: "t1", SegmentSeq: 1, StartRatio: 0, EndRatio: 1, LengthM: 50,
		}},
	}
}

// TestMergeCollapsesDegree2Chain: three fragments of one trail meeting
// only each other collapse to a single edge with two degree-1 endpoints
// and three composition rows.
func TestMergeCollapsesDegree2Chain(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 1},
		{ID: 1, Point: coord(0, 50), Degree: 2},
		{ID: 2, Point: coord(0, 100), Degree: 2},
		{ID: 3, Point: coord(0, 150), Degree: 1},
	}
	edges := []model.Edge{
		straightEdge(0, 0, 1, coord(0, 0), coord(0, 50)),
		straightEdge(1, 1, 2, coord(0, 50), coord(0, 100)),
		straightEdge(2, 2, 3, coord(0, 100), coord(0, 150)),
	}

	result := Merge(testConfig(), nodes, edges)
	require.Empty(t, result.Warnings)
	require.Len(t, result.Edges, 1)
	require.Len(t, result.Nodes, 2)

	merged := result.Edges[0]
	assert.Len(t, merged.Composition, 3)
	assert.Equal(t, 150.0, merged.LengthM)

	for _, n := range result.Nodes {
		assert.Equal(t, 1, n.Degree)
	}
}

// TestMergeLeavesBranchingNodeAlone verifies a degree-3 junction is never
// consumed by the chain walk: only the two pure degree-2 runs either side
// of it collapse.
func TestMergeLeavesBranchingNodeAlone(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 1},
		{ID: 1, Point: coord(0, 50), Degree: 2},
		{ID: 2, Point: coord(0, 100), Degree: 3}, // junction
		{ID: 3, Point: coord(0, 150), Degree: 1},
		{ID: 4, Point: coord(50, 100), Degree: 1},
	}
	edges := []model.Edge{
		straightEdge(0, 0, 1, coord(0, 0), coord(0, 50)),
		straightEdge(1, 1, 2, coord(0, 50), coord(0, 100)),
		straightEdge(2, 2, 3, coord(0, 100), coord(0, 150)),
		straightEdge(3, 2, 4, coord(0, 100), coord(50, 100)),
	}

	result := Merge(testConfig(), nodes, edges)
	require.Len(t, result.Edges, 3)

	var junctionDegree int
	for _, n := range result.Nodes {
		if n.ID == 2 {
			junctionDegree = n.Degree
		}
	}
	assert.Equal(t, 3, junctionDegree)
}

// TestMergeIsolatedCycleSplitsIntoTwoSyntheticNodes: a closed loop with
// no other neighbors is never merged into a single self-loop edge. It's
// promoted at its lowest-id vertex and cut again at the ring's own
// midpoint so the result is two arcs between two synthetic nodes, both
// reported rather than flagged.
func TestMergeIsolatedCycleSplitsIntoTwoSyntheticNodes(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 2},
		{ID: 1, Point: coord(10, 0), Degree: 2},
		{ID: 2, Point: coord(10, 10), Degree: 2},
		{ID: 3, Point: coord(0, 10), Degree: 2},
	}
	edges := []model.Edge{
		straightEdge(0, 0, 1, coord(0, 0), coord(10, 0)),
		straightEdge(1, 1, 2, coord(10, 0), coord(10, 10)),
		straightEdge(2, 2, 3, coord(10, 10), coord(0, 10)),
		straightEdge(3, 3, 0, coord(0, 10), coord(0, 0)),
	}

	result := Merge(testConfig(), nodes, edges)

	require.Len(t, result.Edges, 2)
	require.Len(t, result.IsolatedCycleNodeIDs, 2)

	for _, e := range result.Edges {
		assert.NotEqual(t, e.Source, e.Target, "ring split must never leave a self-loop")
	}

	degreeByID := make(map[int64]int)
	for _, n := range result.Nodes {
		degreeByID[n.ID] = n.Degree
	}
	for _, id := range result.IsolatedCycleNodeIDs {
		assert.Equal(t, 2, degreeByID[id])
	}

	assert.Contains(t, result.IsolatedCycleNodeIDs, int64(0), "lowest-id vertex is the promoted boundary")
}

// TestMergeDeterministic: the same graph merged twice produces identical
// node and edge sets, ids included.
func TestMergeDeterministic(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 1},
		{ID: 1, Point: coord(0, 50), Degree: 2},
		{ID: 2, Point: coord(0, 100), Degree: 3},
		{ID: 3, Point: coord(0, 150), Degree: 2},
		{ID: 4, Point: coord(0, 200), Degree: 1},
		{ID: 5, Point: coord(50, 100), Degree: 1},
	}
	edges := []model.Edge{
		straightEdge(0, 0, 1, coord(0, 0), coord(0, 50)),
		straightEdge(1, 1, 2, coord(0, 50), coord(0, 100)),
		straightEdge(2, 2, 3, coord(0, 100), coord(0, 150)),
		straightEdge(3, 3, 4, coord(0, 150), coord(0, 200)),
		straightEdge(4, 2, 5, coord(0, 100), coord(50, 100)),
	}

	first := Merge(testConfig(), nodes, edges)
	second := Merge(testConfig(), nodes, edges)
	require.Equal(t, first.Nodes, second.Nodes)
	require.Equal(t, first.Edges, second.Edges)
}

// TestMergeSwapsElevationOnReversedEdges: an edge stored opposite to the
// walk's traversal direction contributes its loss as gain and vice versa,
// so the merged edge's elevation matches the v0->vn traversal.
func TestMergeSwapsElevationOnReversedEdges(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 1},
		{ID: 1, Point: coord(0, 50), Degree: 2},
		{ID: 2, Point: coord(0, 100), Degree: 1},
	}

	climb := straightEdge(0, 0, 1, coord(0, 0), coord(0, 50))
	climb.Geometry[0].Elev = 0
	climb.Geometry[1].Elev = 10
	climb.ElevGain, climb.ElevLoss = 10, 0

	// Stored running 2 -> 1 downhill; the chain walk traverses it 1 -> 2.
	descent := straightEdge(1, 2, 1, coord(0, 100), coord(0, 50))
	descent.Geometry[0].Elev = 50
	descent.Geometry[1].Elev = 10
	descent.ElevGain, descent.ElevLoss = 0, 40

	result := Merge(testConfig(), nodes, []model.Edge{climb, descent})
	require.Len(t, result.Edges, 1)

	merged := result.Edges[0]
	assert.Equal(t, 50.0, merged.ElevGain)
	assert.Equal(t, 0.0, merged.ElevLoss)
}

// TestMergeAggregatesAttributesByMode: the merged edge carries the
// most-common name across constituents, first-encountered on ties.
func TestMergeAggregatesAttributesByMode(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 1},
		{ID: 1, Point: coord(0, 50), Degree: 2},
		{ID: 2, Point: coord(0, 100), Degree: 2},
		{ID: 3, Point: coord(0, 150), Degree: 1},
	}
	e0 := straightEdge(0, 0, 1, coord(0, 0), coord(0, 50))
	e1 := straightEdge(1, 1, 2, coord(0, 50), coord(0, 100))
	e2 := straightEdge(2, 2, 3, coord(0, 100), coord(0, 150))
	e0.Name, e1.Name, e2.Name = "Ridge", "Ridge", "Summit"
	e0.Surface, e1.Surface, e2.Surface = "dirt", "gravel", "gravel"

	result := Merge(testConfig(), nodes, []model.Edge{e0, e1, e2})
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "Ridge", result.Edges[0].Name)
	assert.Equal(t, "gravel", result.Edges[0].Surface)
}

// TestMergeIsolatedCycleIsStableAcrossIterations ensures the synthetic
// nodes created to break a ring aren't re-walked and re-split on later
// merge passes (they'd otherwise loop until max_iterations every run).
func TestMergeIsolatedCycleIsStableAcrossIterations(t *testing.T) {
	nodes := []model.Node{
		{ID: 0, Point: coord(0, 0), Degree: 2},
		{ID: 1, Point: coord(10, 0), Degree: 2},
		{ID: 2, Point: coord(10, 10), Degree: 2},
		{ID: 3, Point: coord(0, 10), Degree: 2},
	}
	edges := []model.Edge{
		straightEdge(0, 0, 1, coord(0, 0), coord(10, 0)),
		straightEdge(1, 1, 2, coord(10, 0), coord(10, 10)),
		straightEdge(2, 2, 3, coord(10, 10), coord(0, 10)),
		straightEdge(3, 3, 0, coord(0, 10), coord(0, 0)),
	}

	cfg := testConfig()
	cfg.MaxDegree2Iterations = 5
	result := Merge(cfg, nodes, edges)
	require.Len(t, result.Edges, 2)
	require.Len(t, result.IsolatedCycleNodeIDs, 2)
}
