package intersect

import (
	"math"

	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// detectPair runs the X/T/Y tests for one trail pair and returns every
// candidate found. Indices i,j are the trails' positions in the caller's
// slice, used only to label candidates for the later ratio filter and
// dedup passes. The kinds are mutually exclusive per pair region: a pair
// that crosses or T-joins is never also reported as a Y near-miss, since
// the near-miss midpoint would land within dedup range of the real join
// half the time and a spurious second node the other half.
func detectPair(i, j int, a, b model.Trail, tolDeg float64) []candidate {
	var out []candidate

	// Exact crossings.
	for _, pt := range geom.CrossingPoints(a.Geometry, b.Geometry) {
		ra := geom.ClosestPointOn(a.Geometry, pt).Ratio
		rb := geom.ClosestPointOn(b.Geometry, pt).Ratio
		out = append(out, candidate{
			point:       pt,
			kind:        model.KindExactCrossing,
			connected:   []string{a.SourceID, b.SourceID},
			onTrailAIdx: i, onTrailBIdx: j,
			ratioOnA: ra, ratioOnB: rb,
		})
	}

	if endpointToEndpointOnly(a, b, tolDeg) {
		// Excluded from T/Y detection: the trails already meet at their
		// termini. If the two endpoints are close but not coincident they
		// still need to be fused onto one coordinate so the noder sees a
		// single vertex instead of two disconnected trailheads.
		if c, ok := endpointFusion(i, j, a, b, tolDeg); ok {
			out = append(out, c)
		}
		return out
	}

	// T intersections: each trail's endpoint projected onto the other.
	tCands := detectT(i, j, a, b, tolDeg)
	tCands = append(tCands, detectT(j, i, b, a, tolDeg)...)
	out = append(out, tCands...)
	if len(out) > 0 {
		return out
	}

	// Y intersections: near-miss without crossing or T-joining.
	dist, mid := geom.MinDistanceBetween(a.Geometry, b.Geometry)
	if dist <= tolDeg && dist > 0 {
		ra := geom.ClosestPointOn(a.Geometry, mid).Ratio
		rb := geom.ClosestPointOn(b.Geometry, mid).Ratio
		out = append(out, candidate{
			point:       mid,
			kind:        model.KindNearApproach,
			connected:   []string{a.SourceID, b.SourceID},
			distanceM:   geom.DegreesToMetersLat(dist),
			onTrailAIdx: i, onTrailBIdx: j,
			ratioOnA: ra, ratioOnB: rb,
		})
	}

	return out
}

// detectT finds endpoints of `visiting` that land on or within tolerance
// of `visited`, producing a candidate keyed by visited's index and ratio
// (visiting's own endpoint needs no ratio filter since it is already a
// trail terminus). A distance of exactly zero is still a T: the endpoint
// sits on the other trail's interior and that trail must be cut there.
func detectT(visitingIdx, visitedIdx int, visiting, visited model.Trail, tolDeg float64) []candidate {
	var out []candidate
	for _, end := range [2]model.Coord{visiting.Start, visiting.End} {
		res := geom.ClosestPointOn(visited.Geometry, end)
		if res.Distance <= tolDeg {
			out = append(out, candidate{
				point:       res.Point,
				kind:        model.KindEndpointOnLine,
				connected:   []string{visiting.SourceID, visited.SourceID},
				distanceM:   geom.DegreesToMetersLat(res.Distance),
				onTrailAIdx: visitedIdx, onTrailBIdx: visitingIdx,
				ratioOnA: res.Ratio, ratioOnB: -1,
			})
		}
	}
	return out
}

// endpointToEndpointOnly reports whether a and b meet only endpoint-to-
// endpoint — already handled by vertex coincidence at nodes, so excluded
// here from T/Y detection.
func endpointToEndpointOnly(a, b model.Trail, tolDeg float64) bool {
	return withinTol(a.Start, b.Start, tolDeg) || withinTol(a.Start, b.End, tolDeg) ||
		withinTol(a.End, b.Start, tolDeg) || withinTol(a.End, b.End, tolDeg)
}

// endpointFusion produces the snap-only candidate for two trails whose
// endpoints nearly meet: within tolerance but not exactly coincident. The
// canonical point is the first trail's own endpoint, so one side of the
// pair is exact already and the splitter only has to move the other.
// Ratios are -1 (never filtered, never cut): the point exists purely so
// both termini end up on one coordinate and the noder fuses them into a
// single vertex.
func endpointFusion(i, j int, a, b model.Trail, tolDeg float64) (candidate, bool) {
	bestDist := math.MaxFloat64
	var bestPt model.Coord
	for _, pa := range [2]model.Coord{a.Start, a.End} {
		for _, pb := range [2]model.Coord{b.Start, b.End} {
			d := math.Hypot(pa.Lon-pb.Lon, pa.Lat-pb.Lat)
			if d < bestDist {
				bestDist = d
				bestPt = pa
			}
		}
	}
	if bestDist == 0 || bestDist > tolDeg {
		return candidate{}, false
	}
	return candidate{
		point:       bestPt,
		kind:        model.KindEndpointOnLine,
		connected:   []string{a.SourceID, b.SourceID},
		distanceM:   geom.DegreesToMetersLat(bestDist),
		onTrailAIdx: i, onTrailBIdx: j,
		ratioOnA: -1, ratioOnB: -1,
	}, true
}

func withinTol(a, b model.Coord, tolDeg float64) bool {
	dLon := a.Lon - b.Lon
	dLat := a.Lat - b.Lat
	return dLon*dLon+dLat*dLat <= tolDeg*tolDeg
}

// detectSelfLoop flags a trail whose start and end lie within the
// self-loop tolerance. The join point is the trail's own start; connected
// lists the single source id.
func detectSelfLoop(i int, t model.Trail, tolDeg float64) (candidate, bool) {
	if len(t.Geometry) < 3 {
		return candidate{}, false
	}
	if !withinTol(t.Start, t.End, tolDeg) {
		return candidate{}, false
	}
	return candidate{
		point:       t.Start,
		kind:        model.KindNearApproach,
		connected:   []string{t.SourceID},
		onTrailAIdx: i, onTrailBIdx: i,
		ratioOnA: -1, ratioOnB: -1,
	}, true
}
