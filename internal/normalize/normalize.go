package normalize

import (
	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// Result is the outcome of normalizing one Trail.
type Result struct {
	Trail   model.Trail
	Dropped bool   // true if the trail collapsed during repair or fell below the length floor
	Reason  string // set when Dropped
}

// Normalize applies the normalization steps (repair, force-2D-keep-Z, conditional
// simplify, length floor, derived-field recompute) to a single trail,
// already assumed to be a single LineString (multi-part flattening happens
// before this, via FlattenParts). Running Normalize twice over its own
// output is idempotent: repair and simplify are both no-ops on already
// clean, already-simplified geometry.
func Normalize(cfg *config.Config, t model.Trail) (Result, error) {
	coords := t.Geometry
	if len(coords) < 2 {
		return Result{}, errs.Input(t.SourceID, "trail has fewer than 2 points", nil)
	}

	coords = forceXYKeepZ(coords)
	coords = repairInvalidities(coords, cfg.GridCellDeg)

	if len(coords) >= cfg.SimplifyVertexThreshold {
		coords = simplify(coords, cfg.GridCellDeg)
	}

	if len(coords) < 2 {
		return Result{Dropped: true, Reason: "collapsed to fewer than 2 points during repair"}, nil
	}
	if !geom.IsValid(coords) {
		return Result{}, errs.Geom(t.SourceID, "geometry invalid after repair", nil)
	}

	lengthM, err := geom.LengthM(coords)
	if err != nil {
		return Result{}, errs.Geom(t.SourceID, "length computation failed", err)
	}
	if lengthM < cfg.MinSegmentLengthM {
		return Result{Dropped: true, Reason: "length below minimum segment floor"}, nil
	}

	out := t
	out.Geometry = coords
	out.LengthM = lengthM
	out.BBox = geom.BBox(coords)
	out.Start, out.End = coords[0], coords[len(coords)-1]
	return Result{Trail: out}, nil
}

// RepairCoords applies the repair-and-force-2D steps, without the
// length-floor drop or simplification, to an already-cut coordinate
// sequence. The pipeline runs this second, lighter pass after splitting,
// since cutting a trail at a new intersection point can introduce a
// duplicate vertex at the cut that must be collapsed before noding.
func RepairCoords(cfg *config.Config, coords []model.Coord) []model.Coord {
	coords = forceXYKeepZ(coords)
	return repairInvalidities(coords, cfg.GridCellDeg)
}
