// Package validate implements the network validator: the pipeline's last
// stage, running post-condition checks (degree bounds, self-loops,
// duplicate edges, composition coverage, endpoint coincidence, length
// conservation) over the merger's output.
package validate

import (
	"fmt"
	"math"

	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// Violation is one post-condition failure, carrying enough identity for an
// operator to find the offending node/edge without re-running the check.
type Violation struct {
	Kind    errs.Kind
	Subject string
	Message string
}

// Manifest is the violations report returned alongside the network in
// lenient mode, and returned together with the first violation's error in
// strict mode.
type Manifest struct {
	Violations []Violation

	// ReportedCycles lists the synthetic node pairs an isolated degree-2
	// cycle produced (merge.Result.IsolatedCycleNodeIDs). These are
	// surfaced for operator visibility but never counted as violations:
	// a cycle's boundary nodes carry degree 2 however the cycle is cut.
	ReportedCycles []int64
}

// Clean reports whether the manifest carries no violations.
func (m *Manifest) Clean() bool { return len(m.Violations) == 0 }

func (m *Manifest) add(kind errs.Kind, subject, format string, args ...interface{}) {
	m.Violations = append(m.Violations, Violation{
		Kind:    kind,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate runs every post-condition check against the merger's final
// node/edge set, plus the pre-merge split segment lengths needed for the
// length-conservation check. In strict mode the first violation is returned as a
// fatal *errs.Error; in lenient mode every violation is collected into the
// returned Manifest and nil error.
func Validate(cfg *config.Config, nodes []model.Node, edges []model.Edge, segments []model.SplitSegment, reportedCycleNodes []int64) (*Manifest, error) {
	m := &Manifest{ReportedCycles: reportedCycleNodes}
	isReportedCycle := make(map[int64]bool, len(reportedCycleNodes))
	for _, id := range reportedCycleNodes {
		isReportedCycle[id] = true
	}

	degreeByNode := make(map[int64]int, len(nodes))
	for _, n := range nodes {
		degreeByNode[n.ID] = n.Degree
		if n.Degree < 1 {
			m.add(errs.KindInvariant, nodeSubject(n.ID), "node has degree %d, want >= 1", n.Degree)
		}
	}

	nodeByID := make(map[int64]model.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	var sumEdgeLen float64
	seenGeom := make(map[string][2]int64)

	for _, e := range edges {
		sumEdgeLen += e.LengthM

		if e.Source == e.Target {
			m.add(errs.KindInvariant, edgeSubject(e.ID), "edge is a self-loop (source == target == %d)", e.Source)
		}

		if d := degreeByNode[e.Source]; d == 2 && !isReportedCycle[e.Source] {
			m.add(errs.KindInvariant, nodeSubject(e.Source), "node has degree 2 after merge (unmerged chain?)")
		}
		if d := degreeByNode[e.Target]; d == 2 && !isReportedCycle[e.Target] {
			m.add(errs.KindInvariant, nodeSubject(e.Target), "node has degree 2 after merge (unmerged chain?)")
		}

		if len(e.Composition) == 0 {
			m.add(errs.KindInvariant, edgeSubject(e.ID), "edge has no composition rows")
		} else {
			if err := checkCompositionCoverage(e); err != nil {
				m.add(errs.KindInvariant, edgeSubject(e.ID), "%v", err)
			}
		}

		if len(e.Geometry) > 0 {
			src, ok1 := nodeByID[e.Source]
			dst, ok2 := nodeByID[e.Target]
			if ok1 && !geom.SameCell(e.Geometry[0], src.Point, cfg.GridCellDeg) {
				m.add(errs.KindInvariant, edgeSubject(e.ID), "edge start does not match source node %d coordinate", e.Source)
			}
			if ok2 && !geom.SameCell(e.Geometry[len(e.Geometry)-1], dst.Point, cfg.GridCellDeg) {
				m.add(errs.KindInvariant, edgeSubject(e.ID), "edge end does not match target node %d coordinate", e.Target)
			}
		}

		gk := dupKey(e, cfg.GridCellDeg)
		if prior, ok := seenGeom[gk]; ok {
			m.add(errs.KindInvariant, edgeSubject(e.ID),
				"duplicates edge between nodes %d-%d within the topology cell", prior[0], prior[1])
		} else {
			seenGeom[gk] = [2]int64{e.Source, e.Target}
		}
	}

	var sumSegLen float64
	for _, s := range segments {
		sumSegLen += s.LengthM
	}
	if sumSegLen > 0 {
		ratio := math.Abs(sumEdgeLen-sumSegLen) / sumSegLen
		if ratio >= 1e-3 {
			m.add(errs.KindInvariant, "", "sum of edge lengths (%.3f) diverges from sum of segment lengths (%.3f) by %.5f, want < 1e-3",
				sumEdgeLen, sumSegLen, ratio)
		}
	}

	if !m.Clean() && cfg.StrictValidation {
		first := m.Violations[0]
		return m, errs.Invariant(first.Subject, first.Message, nil)
	}
	return m, nil
}

// checkCompositionCoverage verifies the composition rows cover
// [0, length(e)] contiguously, in segment_seq order, within 0.1%.
func checkCompositionCoverage(e model.Edge) error {
	rows := e.Composition
	const tol = 1e-3

	if math.Abs(rows[0].StartRatio-0.0) > tol {
		return fmt.Errorf("composition does not start at ratio 0.0 (got %.5f)", rows[0].StartRatio)
	}
	last := rows[len(rows)-1]
	if math.Abs(last.EndRatio-1.0) > tol {
		return fmt.Errorf("composition does not end at ratio 1.0 (got %.5f)", last.EndRatio)
	}
	for i := 1; i < len(rows); i++ {
		if math.Abs(rows[i].StartRatio-rows[i-1].EndRatio) > tol {
			return fmt.Errorf("composition gap/overlap between segment_seq %d and %d", rows[i-1].SegmentSeq, rows[i].SegmentSeq)
		}
	}

	var sum float64
	for _, r := range rows {
		sum += r.LengthM
	}
	if e.LengthM > 0 && math.Abs(sum-e.LengthM)/e.LengthM >= 1e-3 {
		return fmt.Errorf("sum of composition lengths (%.3f) diverges from edge length (%.3f)", sum, e.LengthM)
	}
	return nil
}

// dupKey fingerprints an edge by its endpoint pair plus the topology cell
// of its middle geometry vertex: two edges collide only when they join the
// same nodes along the same course, not merely at the same length (the two
// arcs of a broken loop are equal-length but distinct).
func dupKey(e model.Edge, cell float64) string {
	a, b := e.Source, e.Target
	if a > b {
		a, b = b, a
	}
	if len(e.Geometry) == 0 {
		return fmt.Sprintf("%d:%d:-", a, b)
	}
	mid := geom.CellKey(e.Geometry[len(e.Geometry)/2], cell)
	return fmt.Sprintf("%d:%d:%d:%d", a, b, mid.X, mid.Y)
}

func nodeSubject(id int64) string { return fmt.Sprintf("node:%d", id) }
func edgeSubject(id int64) string { return fmt.Sprintf("edge:%d", id) }
