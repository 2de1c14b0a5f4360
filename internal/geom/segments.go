package geom

import (
	"math"

	"trailnet/internal/model"
)

type segRelation int

const (
	segNone segRelation = iota
	segCross
	segCollinearOverlap
)

const epsCross = 1e-12

func cross2(ox, oy, ax, ay, bx, by float64) float64 {
	return (ax-ox)*(by-oy) - (ay-oy)*(bx-ox)
}

// segmentIntersection tests segments a1-a2 and b1-b2 for a proper crossing
// and, when they cross, returns the intersection point.
func segmentIntersection(a1, a2, b1, b2 model.Coord) (segRelation, model.Coord) {
	ax1, ay1 := a1.XY()
	ax2, ay2 := a2.XY()
	bx1, by1 := b1.XY()
	bx2, by2 := b2.XY()

	d1 := cross2(bx1, by1, bx2, by2, ax1, ay1)
	d2 := cross2(bx1, by1, bx2, by2, ax2, ay2)
	d3 := cross2(ax1, ay1, ax2, ay2, bx1, by1)
	d4 := cross2(ax1, ay1, ax2, ay2, bx2, by2)

	if math.Abs(d1) < epsCross && math.Abs(d2) < epsCross {
		// Collinear; treat any bbox overlap as an overlap, not a point
		// crossing (the detector handles endpoint coincidence separately).
		if onSegmentBBox(ax1, ay1, ax2, ay2, bx1, by1) || onSegmentBBox(ax1, ay1, ax2, ay2, bx2, by2) {
			return segCollinearOverlap, model.Coord{}
		}
		return segNone, model.Coord{}
	}

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		denom := (ax2-ax1)*(by2-by1) - (ay2-ay1)*(bx2-bx1)
		if math.Abs(denom) < epsCross {
			return segNone, model.Coord{}
		}
		t := ((bx1-ax1)*(by2-by1) - (by1-ay1)*(bx2-bx1)) / denom
		x := ax1 + t*(ax2-ax1)
		y := ay1 + t*(ay2-ay1)
		return segCross, model.Coord{Lon: x, Lat: y}
	}
	return segNone, model.Coord{}
}

func onSegmentBBox(ax1, ay1, ax2, ay2, px, py float64) bool {
	minX, maxX := math.Min(ax1, ax2), math.Max(ax1, ax2)
	minY, maxY := math.Min(ay1, ay2), math.Max(ay1, ay2)
	return px >= minX-epsCross && px <= maxX+epsCross && py >= minY-epsCross && py <= maxY+epsCross
}

// Crosses reports whether polylines a and b share any proper crossing
// point (an X intersection, not merely touching endpoints).
func Crosses(a, b []model.Coord) bool {
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if kind, _ := segmentIntersection(a[i], a[i+1], b[j], b[j+1]); kind == segCross {
				return true
			}
		}
	}
	return false
}

// CrossingPoints returns every proper crossing point between polylines a
// and b, in the order segments of a are scanned.
func CrossingPoints(a, b []model.Coord) []model.Coord {
	var out []model.Coord
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if kind, pt := segmentIntersection(a[i], a[i+1], b[j], b[j+1]); kind == segCross {
				out = append(out, pt)
			}
		}
	}
	return out
}
