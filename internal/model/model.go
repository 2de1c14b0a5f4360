// Package model defines the tagged-variant data model shared by every
// pipeline stage: Trail, IntersectionPoint, SplitSegment, Edge, Node, and
// the composition rows that tie edges back to their constituent segments.
// Every field has a declared semantic type; nothing here is a
// stringly-typed bag of interface{}.
package model

// Coord is a single (lon, lat, elevation) vertex. Elevation is carried as a
// passive third ordinate; topology never treats it as a dimension.
type Coord struct {
	Lon, Lat, Elev float64
}

// XY returns the 2D projection used for all topological comparisons.
func (c Coord) XY() (float64, float64) { return c.Lon, c.Lat }

// TrailType enumerates the coarse kind of a trail.
type TrailType string

const (
	TrailTypeHiking TrailType = "hiking"
	TrailTypeBiking TrailType = "biking"
	TrailTypeMixed  TrailType = "mixed"
)

// Difficulty enumerates the trail's difficulty rating.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyExpert   Difficulty = "expert"
)

// Source tags the origin dataset a Trail came from. The caller selects one
// via Config.SourceTag; the core never reconciles two sources itself.
type Source string

// BoundingBox is a 2D axis-aligned bounding box in lon/lat degrees.
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Union returns the smallest box containing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		MinLon: min(b.MinLon, o.MinLon),
		MinLat: min(b.MinLat, o.MinLat),
		MaxLon: max(b.MaxLon, o.MaxLon),
		MaxLat: max(b.MaxLat, o.MaxLat),
	}
}

// Overlaps reports whether b and o share any area (touching counts).
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

// Expand returns b grown by d degrees on every side.
func (b BoundingBox) Expand(d float64) BoundingBox {
	return BoundingBox{b.MinLon - d, b.MinLat - d, b.MaxLon + d, b.MaxLat + d}
}

// Trail is an input polyline with descriptive attributes from an origin
// dataset. After normalization the geometry is a single LineString;
// before it, the input may still be multi-part (handled by the
// normalizer's flattening step).
type Trail struct {
	SourceID   string
	Name       string
	Surface    string
	Difficulty Difficulty
	TrailType  TrailType
	Source     Source
	Geometry   []Coord // ordered, >= 2 points

	// Derived fields, recomputed by the normalizer after every
	// geometry-affecting step.
	LengthM float64
	BBox    BoundingBox
	Start   Coord
	End     Coord
}

// Endpoints returns the trail's first and last coordinates.
func (t *Trail) Endpoints() (start, end Coord) {
	return t.Geometry[0], t.Geometry[len(t.Geometry)-1]
}

// IntersectionKind classifies how an IntersectionPoint was produced.
type IntersectionKind string

const (
	KindExactCrossing  IntersectionKind = "exact-crossing"
	KindEndpointOnLine IntersectionKind = "endpoint-on-line"
	KindNearApproach   IntersectionKind = "near-approach"
)

// IntersectionPoint is a 2D location where two or more trails meet or
// nearly meet within tolerance.
type IntersectionPoint struct {
	Point              Coord // Elev is meaningless here; always 2D
	ConnectedSourceIDs []string
	Kind               IntersectionKind
	DistanceMeters     float64
}

// SplitSegment is a post-split Trail fragment owning a contiguous subrange
// of its origin Trail.
type SplitSegment struct {
	ID           string
	OriginID     string // origin Trail SourceID
	SegmentIndex int    // 1-based, per origin trail
	Geometry     []Coord
	LengthM      float64

	// Descriptive attributes copied from the origin Trail.
	Name       string
	Surface    string
	Difficulty Difficulty
	TrailType  TrailType
}

// Node is a point in the plane, stable within its Workspace, whose Degree
// equals the number of incident Edges.
type Node struct {
	ID     int64
	Point  Coord
	Degree int
}

// CompositionRow is one entry in an Edge's provenance mapping, covering a
// contiguous fractional range of the edge's length.
type CompositionRow struct {
	SplitSegmentID string
	OriginID       string
	SegmentSeq     int
	StartRatio     float64
	EndRatio       float64
	LengthM        float64
}

// Edge is an undirected-in-semantics polyline between two Nodes.
type Edge struct {
	ID             int64
	Source, Target int64
	Geometry       []Coord
	LengthM        float64
	ElevGain       float64
	ElevLoss       float64

	Name       string
	Surface    string
	Difficulty Difficulty
	TrailType  TrailType

	Composition []CompositionRow // ordered by SegmentSeq
}

// Endpoints returns the edge's first and last geometry coordinates.
func (e *Edge) Endpoints() (start, end Coord) {
	return e.Geometry[0], e.Geometry[len(e.Geometry)-1]
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
