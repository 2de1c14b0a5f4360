package geom

import (
	"math"

	"trailnet/internal/model"
)

// SnapToGrid quantizes every vertex of coords to a regular grid of cell
// degrees, preserving vertex order and collapsing consecutive duplicates
// produced by the snap.
func SnapToGrid(coords []model.Coord, cell float64) []model.Coord {
	out := make([]model.Coord, 0, len(coords))
	for _, c := range coords {
		snapped := model.Coord{
			Lon:  snapValue(c.Lon, cell),
			Lat:  snapValue(c.Lat, cell),
			Elev: c.Elev,
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Lon == snapped.Lon && last.Lat == snapped.Lat {
				continue
			}
		}
		out = append(out, snapped)
	}
	return out
}

func snapValue(v, cell float64) float64 {
	if cell <= 0 {
		return v
	}
	return math.Round(v/cell) * cell
}

// GridKey returns a hashable key for the grid cell containing pt, used to
// deduplicate candidate points that fall within one topology cell of each
// other (the noder's vertex-dedup and the detector's point-dedup both use
// this).
type GridKey struct {
	X, Y int64
}

// CellKey computes the GridKey for pt at the given cell size.
func CellKey(pt model.Coord, cell float64) GridKey {
	if cell <= 0 {
		cell = 1e-6
	}
	return GridKey{
		X: int64(math.Round(pt.Lon / cell)),
		Y: int64(math.Round(pt.Lat / cell)),
	}
}

// SameCell reports whether a and b fall in the same grid cell at the given
// cell size — the "within the topology cell" equality check used
// from noding onward.
func SameCell(a, b model.Coord, cell float64) bool {
	return CellKey(a, cell) == CellKey(b, cell)
}
