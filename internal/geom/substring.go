package geom

import (
	"sort"

	"trailnet/internal/model"
)

// cumulativeLengths returns the geodesic length of each segment and the
// running total up to and including that segment, plus the grand total.
func cumulativeLengths(coords []model.Coord) (segLens []float64, cum []float64, total float64) {
	segLens = make([]float64, len(coords)-1)
	cum = make([]float64, len(coords)-1)
	for i := 0; i < len(coords)-1; i++ {
		segLens[i] = haversineM(coords[i], coords[i+1])
		total += segLens[i]
		cum[i] = total
	}
	return segLens, cum, total
}

// pointAtRatio returns the coordinate at fractional arc-length position r
// along coords, linearly interpolating lon/lat/elev within the segment it
// falls in.
func pointAtRatio(coords []model.Coord, cum []float64, total, r float64) model.Coord {
	if r <= 0 {
		return coords[0]
	}
	if r >= 1 {
		return coords[len(coords)-1]
	}
	target := r * total
	idx := sort.SearchFloat64s(cum, target)
	if idx >= len(cum) {
		idx = len(cum) - 1
	}
	segStart := 0.0
	if idx > 0 {
		segStart = cum[idx-1]
	}
	segLen := cum[idx] - segStart
	var t float64
	if segLen > 0 {
		t = (target - segStart) / segLen
	}
	p1, p2 := coords[idx], coords[idx+1]
	return model.Coord{
		Lon:  p1.Lon + t*(p2.Lon-p1.Lon),
		Lat:  p1.Lat + t*(p2.Lat-p1.Lat),
		Elev: p1.Elev + t*(p2.Elev-p1.Elev),
	}
}

// Substring returns the portion of coords between fractional arc-length
// positions r1 and r2 (0 <= r1 < r2 <= 1). Fails with ErrDegenerateSubstring
// if the bounds are out of order, or ErrSubstringTooShort if the resulting
// segment's geodesic length is below minSegLenM.
func Substring(coords []model.Coord, r1, r2, minSegLenM float64) ([]model.Coord, error) {
	if !(r1 >= 0 && r1 < r2 && r2 <= 1) {
		return nil, ErrDegenerateSubstring
	}
	_, cum, total := cumulativeLengths(coords)
	if (r2-r1)*total < minSegLenM {
		return nil, ErrSubstringTooShort
	}

	start := pointAtRatio(coords, cum, total, r1)
	end := pointAtRatio(coords, cum, total, r2)

	// Keep interior vertices whose own arc-length ratio falls strictly
	// between r1 and r2, in order.
	out := []model.Coord{start}
	running := 0.0
	for i := 0; i < len(coords)-1; i++ {
		vertexRatio := 0.0
		if total > 0 {
			vertexRatio = running / total
		}
		if vertexRatio > r1 && vertexRatio < r2 {
			out = append(out, coords[i])
		}
		running += haversineM(coords[i], coords[i+1])
	}
	if total > 0 {
		lastRatio := running / total
		if lastRatio > r1 && lastRatio < r2 {
			out = append(out, coords[len(coords)-1])
		}
	}
	out = append(out, end)
	return dedupConsecutive(out), nil
}

// SplitAt cuts coords at the fractional positions in ratios (each in
// (0,1)), returning at most len(ratios)+1 segments in natural order. Positions
// outside [eps, 1-eps] are ignored. minSegLenM segments that would result
// below the floor cause the neighboring cut points to be merged away.
func SplitAt(coords []model.Coord, ratios []float64, eps, minSegLenM float64) [][]model.Coord {
	filtered := make([]float64, 0, len(ratios))
	for _, r := range ratios {
		if r >= eps && r <= 1-eps {
			filtered = append(filtered, r)
		}
	}
	sort.Float64s(filtered)

	cuts := append([]float64{0}, filtered...)
	cuts = append(cuts, 1)
	cuts = dedupSortedFloats(cuts, 1e-9)

	_, _, total := cumulativeLengths(coords)

	// Keep a cut only when the span since the previous kept boundary
	// clears the length floor; an abandoned cut extends the pending
	// segment to the next candidate boundary instead.
	bounds := []float64{0}
	for i := 1; i < len(cuts)-1; i++ {
		if (cuts[i]-bounds[len(bounds)-1])*total < minSegLenM {
			continue
		}
		bounds = append(bounds, cuts[i])
	}
	// The tail is held to the same floor: a cut stranding a sub-floor
	// final segment is retired, fusing the tail into the preceding
	// segment.
	if len(bounds) > 1 && (1-bounds[len(bounds)-1])*total < minSegLenM {
		bounds = bounds[:len(bounds)-1]
	}
	bounds = append(bounds, 1)

	segments := make([][]model.Coord, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		seg, err := Substring(coords, bounds[i-1], bounds[i], minSegLenM)
		if err != nil || len(seg) < 2 {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

func dedupConsecutive(coords []model.Coord) []model.Coord {
	if len(coords) == 0 {
		return coords
	}
	out := []model.Coord{coords[0]}
	for _, c := range coords[1:] {
		last := out[len(out)-1]
		lx, ly := last.XY()
		cx, cy := c.XY()
		if lx == cx && ly == cy {
			continue
		}
		out = append(out, c)
	}
	return out
}

func dedupSortedFloats(vals []float64, tol float64) []float64 {
	if len(vals) == 0 {
		return vals
	}
	out := []float64{vals[0]}
	for _, v := range vals[1:] {
		if v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}
