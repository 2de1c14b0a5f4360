// Package merge implements the degree-2 merger: the hardest stage in
// the pipeline, folding maximal chains of degree-2 vertices produced by
// splitting into single long edges.
package merge

import (
	"sort"

	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/model"
)

// Result is the merger's output: the final node and edge sets after every
// possible degree-2 chain has been collapsed, plus any chains left
// unmerged because their constituent edges disagreed on a shared vertex
// coordinate beyond the topology cell.
type Result struct {
	Nodes    []model.Node
	Edges    []model.Edge
	Warnings []*errs.Error

	// IsolatedCycleNodeIDs lists the synthetic boundary nodes created
	// while breaking an isolated degree-2 cycle (the promoted vertex plus
	// the midpoint split node). These legitimately carry degree 2 forever,
	// as a cycle's nodes always do however it's cut, so the validator
	// reports rather than fails on them.
	IsolatedCycleNodeIDs []int64
}

// graph is the merger's mutable working state: nodes and edges keyed by
// id, plus an adjacency index rebuilt incrementally as chains collapse.
type graph struct {
	nodes      map[int64]*model.Node
	edges      map[int64]*model.Edge
	adj        map[int64][]int64 // nodeID -> incident edge ids
	nextEdgeID int64
	nextNodeID int64

	// protected nodes are never reconsidered as degree-2 chain members,
	// even though their topological degree is genuinely 2 — the synthetic
	// boundaries an isolated-cycle split creates. Without this a ring
	// split into two arcs just gets re-walked and re-split every pass.
	protected map[int64]bool
}

func newGraph(nodes []model.Node, edges []model.Edge) *graph {
	g := &graph{
		nodes:     make(map[int64]*model.Node, len(nodes)),
		edges:     make(map[int64]*model.Edge, len(edges)),
		adj:       make(map[int64][]int64, len(nodes)),
		protected: make(map[int64]bool),
	}
	for i := range nodes {
		n := nodes[i]
		g.nodes[n.ID] = &n
		if n.ID >= g.nextNodeID {
			g.nextNodeID = n.ID + 1
		}
	}
	for i := range edges {
		e := edges[i]
		g.edges[e.ID] = &e
		g.adj[e.Source] = append(g.adj[e.Source], e.ID)
		g.adj[e.Target] = append(g.adj[e.Target], e.ID)
		if e.ID >= g.nextEdgeID {
			g.nextEdgeID = e.ID + 1
		}
	}
	return g
}

// addNode inserts a freshly synthesized node at pt and returns its id.
// Used only to break an isolated degree-2 cycle's single promoted boundary
// into the two distinct nodes a self-loop-free merged edge requires.
func (g *graph) addNode(pt model.Coord) int64 {
	id := g.nextNodeID
	g.nextNodeID++
	g.nodes[id] = &model.Node{ID: id, Point: pt}
	return id
}

func (g *graph) degree(id int64) int { return len(g.adj[id]) }

func (g *graph) removeEdge(id int64) {
	e := g.edges[id]
	if e == nil {
		return
	}
	g.adj[e.Source] = removeID(g.adj[e.Source], id)
	g.adj[e.Target] = removeID(g.adj[e.Target], id)
	delete(g.edges, id)
}

func (g *graph) addEdge(e model.Edge) {
	ge := e
	g.edges[ge.ID] = &ge
	g.adj[ge.Source] = append(g.adj[ge.Source], ge.ID)
	g.adj[ge.Target] = append(g.adj[ge.Target], ge.ID)
}

func (g *graph) removeNode(id int64) {
	delete(g.nodes, id)
	delete(g.adj, id)
}

func removeID(ids []int64, target int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Merge runs the fixed-point degree-2 collapse over nodes/edges (the
// noder's output) and returns the final graph.
func Merge(cfg *config.Config, nodes []model.Node, edges []model.Edge) Result {
	g := newGraph(nodes, edges)
	var warnings []*errs.Error
	var isolatedCycleNodes []int64

	for iter := 0; iter < cfg.MaxDegree2Iterations; iter++ {
		processed := make(map[int64]bool)
		mergedThisPass := false

		degree2 := make([]int64, 0)
		for id := range g.nodes {
			if g.degree(id) == 2 && !g.protected[id] {
				degree2 = append(degree2, id)
			}
		}
		sortInt64s(degree2)

		for _, v := range degree2 {
			if processed[v] {
				continue
			}
			if g.degree(v) != 2 {
				continue // degree changed from an earlier merge this pass
			}

			chain, ok, warn := walkChain(g, v, cfg.GridCellDeg)
			if warn != nil {
				warnings = append(warnings, warn)
			}
			if !ok {
				continue
			}

			for _, interior := range chain.interiorNodeIDs {
				processed[interior] = true
			}
			processed[v] = true

			merged := buildMergedEdge(g, chain)
			for _, oe := range chain.edges {
				g.removeEdge(oe.id)
			}
			for _, nid := range chain.interiorNodeIDs {
				g.removeNode(nid)
			}

			if chain.isIsolatedCycle {
				// A ring entered only at one promoted vertex still collapses
				// to a self-loop if left as one edge, so the ring is cut
				// again at its own midpoint into two edges joined by a
				// second synthetic node, mirroring how the noder breaks a
				// raw self-loop trail.
				e1, e2, midID := splitRingAtMidpoint(g, merged)
				e1.ID = g.nextEdgeID
				g.nextEdgeID++
				e2.ID = g.nextEdgeID
				g.nextEdgeID++
				g.addEdge(e1)
				g.addEdge(e2)
				g.protected[chain.v0] = true
				g.protected[midID] = true
				isolatedCycleNodes = append(isolatedCycleNodes, chain.v0, midID)
			} else {
				merged.ID = g.nextEdgeID
				g.nextEdgeID++
				g.addEdge(merged)
			}
			mergedThisPass = true
		}

		if !mergedThisPass {
			break
		}
	}

	outNodes := make([]model.Node, 0, len(g.nodes))
	for id, n := range g.nodes {
		n.Degree = g.degree(id)
		outNodes = append(outNodes, *n)
	}
	sortNodes(outNodes)

	outEdges := make([]model.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		outEdges = append(outEdges, *e)
	}
	sortEdges(outEdges)

	sortInt64s(isolatedCycleNodes)
	return Result{Nodes: outNodes, Edges: outEdges, Warnings: warnings, IsolatedCycleNodeIDs: isolatedCycleNodes}
}

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortNodes(nodes []model.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}
