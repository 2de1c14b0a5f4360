package intersect

import (
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// filterByRatio drops candidates whose ratio on either trail falls outside
// [eps, 1-eps], preventing zero-length split slivers. A ratio of -1 marks
// "not applicable" (the candidate's own trail endpoint, or a self-loop)
// and is never filtered.
func filterByRatio(cands []candidate, trails []model.Trail, eps float64) []candidate {
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.ratioOnA >= 0 && (c.ratioOnA < eps || c.ratioOnA > 1-eps) {
			continue
		}
		if c.ratioOnB >= 0 && (c.ratioOnB < eps || c.ratioOnB > 1-eps) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedup drops candidates that fall within dedupTolDeg of an already
// accepted candidate, using snap-to-grid equivalence on a finer grid than
// the main topology cell.
func dedup(cands []candidate, dedupTolDeg float64) []candidate {
	var accepted []candidate
	seen := make(map[geom.GridKey]bool)
	for _, c := range cands {
		key := geom.CellKey(c.point, dedupTolDeg)
		if seen[key] {
			continue
		}
		seen[key] = true
		accepted = append(accepted, c)
	}
	return accepted
}
