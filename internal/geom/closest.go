package geom

import (
	"math"

	"trailnet/internal/model"
)

// ClosestPointResult is the outcome of projecting a point onto a polyline.
type ClosestPointResult struct {
	Point    model.Coord
	Ratio    float64 // fractional arc-length position in [0,1]
	Distance float64 // planar distance, in the same units as the input coords (degrees)
}

// ClosestPointOn returns the point on coords nearest pt in 2D, its
// fractional arc-length position, and the planar distance.
func ClosestPointOn(coords []model.Coord, pt model.Coord) ClosestPointResult {
	segLens := make([]float64, len(coords)-1)
	var total float64
	for i := 0; i < len(coords)-1; i++ {
		x1, y1 := coords[i].XY()
		x2, y2 := coords[i+1].XY()
		segLens[i] = math.Hypot(x2-x1, y2-y1)
		total += segLens[i]
	}

	best := ClosestPointResult{Distance: math.MaxFloat64}
	var traveled float64
	for i := 0; i < len(coords)-1; i++ {
		p1, p2 := coords[i], coords[i+1]
		proj, t, dist := projectOntoSegment(p1, p2, pt)
		if dist < best.Distance {
			ratio := 0.0
			if total > 0 {
				ratio = (traveled + t*segLens[i]) / total
			}
			best = ClosestPointResult{Point: proj, Ratio: ratio, Distance: dist}
		}
		traveled += segLens[i]
	}
	return best
}

// projectOntoSegment projects pt onto segment p1-p2, returning the
// projected point, the segment-local parameter t in [0,1], and the planar
// distance from pt to the projection.
func projectOntoSegment(p1, p2, pt model.Coord) (model.Coord, float64, float64) {
	x1, y1 := p1.XY()
	x2, y2 := p2.XY()
	px, py := pt.XY()

	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	var t float64
	if lenSq > 0 {
		t = ((px-x1)*dx + (py-y1)*dy) / lenSq
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	projX, projY := x1+t*dx, y1+t*dy
	dist := math.Hypot(px-projX, py-projY)

	// Interpolate elevation along the segment for provenance-friendly output.
	elev := p1.Elev + t*(p2.Elev-p1.Elev)
	return model.Coord{Lon: projX, Lat: projY, Elev: elev}, t, dist
}

// DistancePointLine returns the 2D planar distance from pt to the nearest
// point on coords.
func DistancePointLine(pt model.Coord, coords []model.Coord) float64 {
	return ClosestPointOn(coords, pt).Distance
}

// MinDistanceBetween returns the minimum 2D planar distance between any
// pair of points on polylines a and b, and the midpoint of the closest
// pair — used by the detector's Y-intersection (near-miss) test.
func MinDistanceBetween(a, b []model.Coord) (dist float64, midpoint model.Coord) {
	dist = math.MaxFloat64
	for _, pa := range a {
		res := ClosestPointOn(b, pa)
		if res.Distance < dist {
			dist = res.Distance
			midpoint = model.Coord{
				Lon:  (pa.Lon + res.Point.Lon) / 2,
				Lat:  (pa.Lat + res.Point.Lat) / 2,
				Elev: (pa.Elev + res.Point.Elev) / 2,
			}
		}
	}
	for _, pb := range b {
		res := ClosestPointOn(a, pb)
		if res.Distance < dist {
			dist = res.Distance
			midpoint = model.Coord{
				Lon:  (pb.Lon + res.Point.Lon) / 2,
				Lat:  (pb.Lat + res.Point.Lat) / 2,
				Elev: (pb.Elev + res.Point.Elev) / 2,
			}
		}
	}
	return dist, midpoint
}
