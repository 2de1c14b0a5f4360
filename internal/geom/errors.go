package geom

import "errors"

// Sentinel errors for kernel operations, in the style of lvlath's core
// package (one var block of named sentinel errors per failure mode).
var (
	// ErrTooFewPoints indicates a polyline with fewer than two coordinates.
	ErrTooFewPoints = errors.New("geom: fewer than two points")

	// ErrDegenerateSubstring indicates substring bounds out of [0,1] order.
	ErrDegenerateSubstring = errors.New("geom: r1 must be < r2, both in [0,1]")

	// ErrSubstringTooShort indicates a substring shorter than the
	// configured minimum segment length.
	ErrSubstringTooShort = errors.New("geom: substring shorter than minimum segment length")

	// ErrNaNCoordinate indicates a coordinate with a NaN ordinate.
	ErrNaNCoordinate = errors.New("geom: coordinate contains NaN")

	// ErrNonLinear indicates a geometry type this kernel does not operate
	// on (points, polygons, etc).
	ErrNonLinear = errors.New("geom: not a linear geometry")
)
