// Package node implements the noder: it turns the split-segment set
// into a planar graph of Nodes and Edges.
package node

import (
	"sort"
	"strconv"

	"trailnet/internal/config"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// Result is the noder's output: the assigned node set and the edges
// referencing them, both still carrying the full-length composition of a
// single constituent split segment each (the merger later folds degree-2
// chains into longer edges).
type Result struct {
	Nodes []model.Node
	Edges []model.Edge
}

// Node assigns stable node ids to every distinct 2D endpoint (after
// snap-to-grid), rewrites each segment's terminal vertices to its nodes'
// canonical coordinates, and emits one Edge per SplitSegment. Self-loops
// are broken by injecting a synthetic midpoint node. Duplicate edges
// (same endpoint pair, middle geometry vertex in the same topology cell)
// are dropped.
func Node(cfg *config.Config, segments []model.SplitSegment) Result {
	sorted := make([]model.SplitSegment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].OriginID != sorted[j].OriginID {
			return sorted[i].OriginID < sorted[j].OriginID
		}
		return sorted[i].SegmentIndex < sorted[j].SegmentIndex
	})

	cellOf := make(map[geom.GridKey]int64)
	var nodes []model.Node
	var nextID int64

	nodeFor := func(pt model.Coord) int64 {
		key := geom.CellKey(pt, cfg.GridCellDeg)
		if id, ok := cellOf[key]; ok {
			return id
		}
		id := nextID
		nextID++
		cellOf[key] = id
		nodes = append(nodes, model.Node{ID: id, Point: pt})
		return id
	}

	degree := make(map[int64]int)
	seenEdgeKey := make(map[string]bool)
	var edges []model.Edge
	var nextEdgeID int64

	for _, s := range sorted {
		start, end := s.Geometry[0], s.Geometry[len(s.Geometry)-1]
		srcID := nodeFor(start)
		dstID := nodeFor(end)

		geomCoords := rewriteTerminals(s.Geometry, nodes[srcID].Point, nodes[dstID].Point)

		if srcID == dstID {
			// Forbidden: break the self-loop with a synthetic midpoint
			// node at the segment's own midpoint vertex.
			midIdx := len(geomCoords) / 2
			midPt := geomCoords[midIdx]
			midID := nodeFor(midPt)

			first := geomCoords[:midIdx+1]
			second := geomCoords[midIdx:]

			e1 := newEdge(nextEdgeID, srcID, midID, first, s)
			nextEdgeID++
			e2 := newEdge(nextEdgeID, midID, dstID, second, s)
			nextEdgeID++

			if !isDuplicate(seenEdgeKey, e1, cfg.GridCellDeg) {
				edges = append(edges, e1)
				degree[e1.Source]++
				degree[e1.Target]++
			}
			if !isDuplicate(seenEdgeKey, e2, cfg.GridCellDeg) {
				edges = append(edges, e2)
				degree[e2.Source]++
				degree[e2.Target]++
			}
			continue
		}

		e := newEdge(nextEdgeID, srcID, dstID, geomCoords, s)
		if isDuplicate(seenEdgeKey, e, cfg.GridCellDeg) {
			continue
		}
		nextEdgeID++
		edges = append(edges, e)
		degree[e.Source]++
		degree[e.Target]++
	}

	for i := range nodes {
		nodes[i].Degree = degree[nodes[i].ID]
	}

	return Result{Nodes: nodes, Edges: edges}
}

func newEdge(id, src, dst int64, coords []model.Coord, s model.SplitSegment) model.Edge {
	length, _ := geom.LengthM(coords)
	return model.Edge{
		ID:       id,
		Source:   src,
		Target:   dst,
		Geometry: coords,
		LengthM:  length,
		ElevGain: elevGain(coords),
		ElevLoss: elevLoss(coords),
		Name:     s.Name,
		Surface:  s.Surface,
		Difficulty: s.Difficulty,
		TrailType:  s.TrailType,
		Composition: []model.CompositionRow{{
			SplitSegmentID: s.ID,
			OriginID:       s.OriginID,
			SegmentSeq:     1,
			StartRatio:     0,
			EndRatio:       1,
			LengthM:        length,
		}},
	}
}

func rewriteTerminals(coords []model.Coord, start, end model.Coord) []model.Coord {
	out := make([]model.Coord, len(coords))
	copy(out, coords)
	out[0] = model.Coord{Lon: start.Lon, Lat: start.Lat, Elev: out[0].Elev}
	out[len(out)-1] = model.Coord{Lon: end.Lon, Lat: end.Lat, Elev: out[len(out)-1].Elev}
	return out
}

func elevGain(coords []model.Coord) float64 {
	var g float64
	for i := 1; i < len(coords); i++ {
		if d := coords[i].Elev - coords[i-1].Elev; d > 0 {
			g += d
		}
	}
	return g
}

func elevLoss(coords []model.Coord) float64 {
	var l float64
	for i := 1; i < len(coords); i++ {
		if d := coords[i-1].Elev - coords[i].Elev; d > 0 {
			l += d
		}
	}
	return l
}

// isDuplicate reports whether e shares both endpoints (in either order)
// and an interior course with an already-seen edge — a true geometric
// duplicate rather than a second, distinct trail happening to join the
// same two junctions — and records e if not. The course is fingerprinted
// by the middle geometry vertex's topology cell, so the two arcs of a
// broken self-loop (same endpoints, same length, opposite sides) are kept
// apart while a re-imported copy of the same segment collapses.
func isDuplicate(seen map[string]bool, e model.Edge, cell float64) bool {
	key := edgeKey(e.Source, e.Target) + "@" + midVertexKey(e.Geometry, cell)
	if seen[key] {
		return true
	}
	seen[key] = true
	return false
}

func midVertexKey(coords []model.Coord, cell float64) string {
	k := geom.CellKey(coords[len(coords)/2], cell)
	return strconv.FormatInt(k.X, 10) + "," + strconv.FormatInt(k.Y, 10)
}

func edgeKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}
