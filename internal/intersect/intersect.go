// Package intersect implements the intersection detector: it finds
// every place two trails cross, touch, or near-miss within tolerance and
// emits the IntersectionPoint set the splitter cuts against.
package intersect

import (
	"sort"

	"github.com/tidwall/rtree"

	"trailnet/internal/config"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// candidate is a detector-internal hit before dedup and ratio filtering.
type candidate struct {
	point        model.Coord
	kind         model.IntersectionKind
	connected    []string
	distanceM    float64
	onTrailAIdx  int     // index into the input trails slice
	onTrailBIdx int
	ratioOnA     float64 // fractional position on trail A, -1 if n/a
	ratioOnB     float64
}

// Detect runs detection over trails (already normalized, 2D-safe)
// and returns the deduplicated, filtered IntersectionPoint set in stable
// order (by first trail index, then position along it).
func Detect(cfg *config.Config, trails []model.Trail) []model.IntersectionPoint {
	tolDeg := geom.MetersToDegreesLat(cfg.IntersectionToleranceM)
	selfLoopTolDeg := geom.MetersToDegreesLat(cfg.IntersectionToleranceM * 10)

	idx := buildIndex(trails, tolDeg)

	var candidates []candidate
	seenPairs := make(map[[2]int]bool)

	for i, t := range trails {
		box := t.BBox.Expand(tolDeg)
		idx.Search(
			[2]float64{box.MinLon, box.MinLat},
			[2]float64{box.MaxLon, box.MaxLat},
			func(_, _ [2]float64, value interface{}) bool {
				j := value.(int)
				if j <= i {
					return true
				}
				pairKey := [2]int{i, j}
				if seenPairs[pairKey] {
					return true
				}
				seenPairs[pairKey] = true

				candidates = append(candidates, detectPair(i, j, trails[i], trails[j], tolDeg)...)
				return true
			},
		)

		if selfLoopCandidate, ok := detectSelfLoop(i, t, selfLoopTolDeg); ok {
			candidates = append(candidates, selfLoopCandidate)
		}
	}

	filtered := filterByRatio(candidates, trails, cfg.SplitRatioEpsilon)
	dedupTolDeg := tolDeg * cfg.DedupToleranceFrac
	accepted := dedup(filtered, dedupTolDeg)

	sort.SliceStable(accepted, func(a, b int) bool {
		if accepted[a].onTrailAIdx != accepted[b].onTrailAIdx {
			return accepted[a].onTrailAIdx < accepted[b].onTrailAIdx
		}
		return accepted[a].ratioOnA < accepted[b].ratioOnA
	})

	out := make([]model.IntersectionPoint, 0, len(accepted))
	for _, c := range accepted {
		out = append(out, model.IntersectionPoint{
			Point:              c.point,
			ConnectedSourceIDs: c.connected,
			Kind:               c.kind,
			DistanceMeters:     c.distanceM,
		})
	}
	return out
}

// buildIndex loads every trail's expanded bbox into an rtree so the outer
// scan only visits pairs whose bounding boxes plausibly interact, instead
// of the full O(n^2) trail pairing.
func buildIndex(trails []model.Trail, tolDeg float64) *rtree.RTree {
	idx := &rtree.RTree{}
	for i, t := range trails {
		box := t.BBox.Expand(tolDeg)
		idx.Insert([2]float64{box.MinLon, box.MinLat}, [2]float64{box.MaxLon, box.MaxLat}, i)
	}
	return idx
}
