package merge

import (
	"strconv"

	"trailnet/internal/errs"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// orientedEdge is one step of a chain walk: the edge id and whether its
// stored geometry runs opposite to the walk's traversal direction.
type orientedEdge struct {
	id       int64
	reversed bool
}

// chain is a maximal degree-2 run ready to collapse into one edge.
type chain struct {
	edges           []orientedEdge // v0 -> vn order
	v0, vn          int64
	interiorNodeIDs []int64
	isIsolatedCycle bool
}

// walkChain finds the maximal degree-2 chain containing start. ok is false
// when start's chain was rejected — either a v0==vn non-isolated loop
// (left unmerged and reported) or a geometric-inconsistency failure at a
// shared vertex.
func walkChain(g *graph, start int64, gridCellDeg float64) (chain, bool, *errs.Error) {
	incident := g.adj[start]
	if len(incident) != 2 {
		return chain{}, false, nil
	}

	leftEdges, leftNodes, leftBoundary, leftClosed := walkDirection(g, start, incident[0])
	if leftClosed {
		return buildIsolatedCycle(g, start, leftEdges, leftNodes, gridCellDeg)
	}

	rightEdges, rightNodes, rightBoundary, _ := walkDirection(g, start, incident[1])

	if leftBoundary == rightBoundary {
		return chain{}, false, errs.Invariant(
			itoa(leftBoundary), "degree-2 chain closes on itself at a single boundary vertex; left unmerged", nil)
	}

	if warn := checkJoinConsistency(g, leftEdges, gridCellDeg); warn != nil {
		return chain{}, false, warn
	}
	if warn := checkJoinConsistency(g, rightEdges, gridCellDeg); warn != nil {
		return chain{}, false, warn
	}

	full := make([]orientedEdge, 0, len(leftEdges)+len(rightEdges))
	for i := len(leftEdges) - 1; i >= 0; i-- {
		e := leftEdges[i]
		full = append(full, orientedEdge{id: e.id, reversed: !e.reversed})
	}
	full = append(full, rightEdges...)

	interior := make([]int64, 0, len(leftNodes)+len(rightNodes)+1)
	interior = append(interior, leftNodes...)
	interior = append(interior, start)
	interior = append(interior, rightNodes...)

	return chain{
		edges:           full,
		v0:              leftBoundary,
		vn:              rightBoundary,
		interiorNodeIDs: interior,
	}, true, nil
}

// walkDirection walks from start along firstEdge, consuming degree-2 nodes
// until it reaches a non-degree-2 boundary (closed=false) or loops back to
// start (closed=true, an isolated cycle). Returned edges are oriented
// start-to-boundary; nodesVisited lists the interior degree-2 nodes
// consumed, in traversal order, not including start.
func walkDirection(g *graph, start, firstEdge int64) (edgesOut []orientedEdge, nodesVisited []int64, boundary int64, closed bool) {
	curEdge := firstEdge
	curNode := start
	e := g.edges[curEdge]
	nextNode := other(e, curNode)
	edgesOut = append(edgesOut, orientedEdge{id: curEdge, reversed: e.Target == curNode})

	for {
		if nextNode == start {
			return edgesOut, nodesVisited, 0, true
		}
		if g.degree(nextNode) != 2 {
			return edgesOut, nodesVisited, nextNode, false
		}
		nodesVisited = append(nodesVisited, nextNode)
		nextEdge := otherEdgeAt(g, nextNode, curEdge)
		ne := g.edges[nextEdge]
		edgesOut = append(edgesOut, orientedEdge{id: nextEdge, reversed: ne.Target == nextNode})
		curEdge = nextEdge
		curNode = nextNode
		nextNode = other(ne, curNode)
	}
}

// buildIsolatedCycle handles a chain with no degree-!=2 boundary anywhere:
// the lowest-id vertex on the ring is promoted to a synthetic boundary so
// the ring can still collapse to a single edge, per the documented
// resolution of the isolated-cycle open question.
func buildIsolatedCycle(g *graph, start int64, ringEdges []orientedEdge, ringNodes []int64, gridCellDeg float64) (chain, bool, *errs.Error) {
	allNodes := append([]int64{start}, ringNodes...)
	promoted := allNodes[0]
	for _, n := range allNodes[1:] {
		if n < promoted {
			promoted = n
		}
	}

	if warn := checkJoinConsistency(g, ringEdges, gridCellDeg); warn != nil {
		return chain{}, false, warn
	}

	// Re-root the ring so traversal starts and ends at promoted: rotate the
	// edge list to begin immediately after promoted's position.
	rotated := rotateRingToStart(g, ringEdges, promoted, start)

	interior := make([]int64, 0, len(allNodes)-1)
	for _, n := range allNodes {
		if n != promoted {
			interior = append(interior, n)
		}
	}

	return chain{
		edges:           rotated,
		v0:              promoted,
		vn:              promoted,
		interiorNodeIDs: interior,
		isIsolatedCycle: true,
	}, true, nil
}

// rotateRingToStart reorders a full-ring oriented-edge list (currently
// beginning at start) so it begins at promoted instead, preserving
// traversal direction.
func rotateRingToStart(g *graph, ring []orientedEdge, promoted, start int64) []orientedEdge {
	if promoted == start {
		return ring
	}
	cur := start
	splitAt := -1
	for i, oe := range ring {
		e := g.edges[oe.id]
		from := cur
		cur = other(e, from)
		if cur == promoted {
			splitAt = i + 1
			break
		}
	}
	if splitAt <= 0 || splitAt >= len(ring) {
		return ring
	}
	out := make([]orientedEdge, 0, len(ring))
	out = append(out, ring[splitAt:]...)
	out = append(out, ring[:splitAt]...)
	return out
}

func otherEdgeAt(g *graph, node, arrivedVia int64) int64 {
	for _, eid := range g.adj[node] {
		if eid != arrivedVia {
			return eid
		}
	}
	return arrivedVia
}

func other(e *model.Edge, from int64) int64 {
	if e.Source == from {
		return e.Target
	}
	return e.Source
}

// checkJoinConsistency verifies every internal join between consecutive
// edges in the walk agrees on the shared vertex's coordinate within the
// topology cell. A real mismatch would mean the noder produced edges that
// don't actually meet, which should be impossible, but the merger checks
// anyway since it is the stage that concatenates their geometry.
func checkJoinConsistency(g *graph, edges []orientedEdge, gridCellDeg float64) *errs.Error {
	for i := 0; i+1 < len(edges); i++ {
		a := g.edges[edges[i].id]
		b := g.edges[edges[i+1].id]
		aEnd := endpointCoord(a, edges[i].reversed, false)
		bStart := endpointCoord(b, edges[i+1].reversed, true)
		if !geom.SameCell(aEnd, bStart, gridCellDeg) {
			return errs.Invariant(itoa(a.ID), "chain join vertices disagree beyond the topology cell", nil)
		}
	}
	return nil
}

// endpointCoord returns e's head (wantStart=false) or tail (wantStart=true)
// coordinate in traversal direction, honoring reversed.
func endpointCoord(e *model.Edge, reversed, wantStart bool) model.Coord {
	first, last := e.Geometry[0], e.Geometry[len(e.Geometry)-1]
	if reversed {
		first, last = last, first
	}
	if wantStart {
		return first
	}
	return last
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
