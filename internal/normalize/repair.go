package normalize

import (
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// repairInvalidities collapses consecutive vertices that fall within the
// same topology grid cell (duplicate vertices and near-zero-length
// segments), keeping the first vertex of each run.
func repairInvalidities(coords []model.Coord, gridCellDeg float64) []model.Coord {
	if len(coords) == 0 {
		return coords
	}
	out := []model.Coord{coords[0]}
	for _, c := range coords[1:] {
		if geom.SameCell(out[len(out)-1], c, gridCellDeg) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// forceXYKeepZ is the normalization step that drops any higher-dimensional topology
// while retaining the elevation ordinate for output. model.Coord is always
// 2D-plus-Z, so this returns geom.ForceXYKeepZ's copy unchanged; NaN
// ordinates are not checked here (geom.IsValid rejects them later).
func forceXYKeepZ(coords []model.Coord) []model.Coord {
	return geom.ForceXYKeepZ(coords)
}
