package geom

import (
	"math"

	"trailnet/internal/model"
)

// IsValid reports whether coords has at least two points, no duplicate
// consecutive vertices, and no NaN ordinate.
func IsValid(coords []model.Coord) bool {
	if len(coords) < 2 {
		return false
	}
	for i, c := range coords {
		if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsNaN(c.Elev) {
			return false
		}
		if i > 0 {
			px, py := coords[i-1].XY()
			x, y := c.XY()
			if px == x && py == y {
				return false
			}
		}
	}
	return true
}

// IsSimple reports whether coords has no self-intersection: no two
// non-adjacent segments cross. Only proper crossings are detected; a
// segment touching a non-adjacent vertex, or two segments overlapping
// collinearly, is not reported.
func IsSimple(coords []model.Coord) bool {
	n := len(coords)
	if n < 2 {
		return false
	}
	for i := 0; i < n-1; i++ {
		a1, a2 := coords[i], coords[i+1]
		for j := i + 1; j < n-1; j++ {
			b1, b2 := coords[j], coords[j+1]
			// Adjacent segments share an endpoint by construction; that
			// shared point is not a self-intersection.
			if j == i+1 {
				continue
			}
			if kind, _ := segmentIntersection(a1, a2, b1, b2); kind == segCross {
				return false
			}
		}
	}
	return true
}

// ForceXYKeepZ projects coords to 2D for topology while retaining the
// per-vertex Z (elevation) ordinate for provenance. The kernel already
// stores Z alongside X/Y, so this returns a defensive copy rather than
// discarding anything; it does not inspect or validate the input.
func ForceXYKeepZ(coords []model.Coord) []model.Coord {
	out := make([]model.Coord, len(coords))
	copy(out, coords)
	return out
}

// MetersToDegreesLat converts a meter distance to an approximate degrees-
// of-latitude distance, used to turn a metric tolerance into the
// angular quantities the kernel's planar comparisons operate on.
func MetersToDegreesLat(m float64) float64 {
	return m / 111320.0
}

// DegreesToMetersLat converts an angular distance in degrees of latitude
// back to meters, the inverse of MetersToDegreesLat. The detector uses it
// to report snap distances in the metric unit its tolerance is configured
// in.
func DegreesToMetersLat(d float64) float64 {
	return d * 111320.0
}

// MetersToDegreesLon converts a meter distance to an approximate degrees-
// of-longitude distance at the given latitude.
func MetersToDegreesLon(m, atLat float64) float64 {
	cos := math.Cos(atLat * math.Pi / 180)
	if cos < 1e-9 {
		cos = 1e-9
	}
	return m / (111320.0 * cos)
}
