// Package geom is the geometry kernel: 2D/3D polyline primitives,
// validity, snap-to-grid, distance, projection, substring and split-at.
// It operates in geographic lon/lat with elevation carried as a passive
// third ordinate: all length and distance computations use geodesic
// length in meters (haversine), while all topological comparisons
// (equality, closeness) use 2D planar coordinates. Coordinate storage is
// backed by github.com/twpayne/go-geom so geometry can be losslessly
// bridged to WKT at the store boundary.
package geom

import (
	"math"

	"github.com/twpayne/go-geom"

	"trailnet/internal/model"
)

// earthRadiusM is the mean Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

// Polyline is an ordered sequence of >= 2 3D coordinates, backed by a
// go-geom LineString with an XYZ layout.
type Polyline struct {
	ls *geom.LineString
}

// NewPolyline builds a Polyline from model coordinates. Returns
// ErrTooFewPoints if fewer than two points are given.
func NewPolyline(coords []model.Coord) (*Polyline, error) {
	if len(coords) < 2 {
		return nil, ErrTooFewPoints
	}
	flat := make([]geom.Coord, len(coords))
	for i, c := range coords {
		flat[i] = geom.Coord{c.Lon, c.Lat, c.Elev}
	}
	ls := geom.NewLineString(geom.XYZ)
	if _, err := ls.SetCoords(flat); err != nil {
		return nil, err
	}
	return &Polyline{ls: ls}, nil
}

// Coords returns the polyline's vertices as model coordinates.
func (p *Polyline) Coords() []model.Coord {
	raw := p.ls.Coords()
	out := make([]model.Coord, len(raw))
	for i, c := range raw {
		out[i] = model.Coord{Lon: c[0], Lat: c[1], Elev: c[2]}
	}
	return out
}

// NumCoords returns the number of vertices.
func (p *Polyline) NumCoords() int { return p.ls.NumCoords() }

// LineString exposes the underlying go-geom geometry, e.g. for WKT
// encoding at the store boundary.
func (p *Polyline) LineString() *geom.LineString { return p.ls }

// haversineM returns the great-circle distance between two lon/lat points
// in meters.
func haversineM(a, b model.Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sa := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(sa), math.Sqrt(1-sa))
	return earthRadiusM * c
}

// LengthM returns the geodesic length of coords in meters. Fails with
// ErrTooFewPoints when coords has < 2 points.
func LengthM(coords []model.Coord) (float64, error) {
	if len(coords) < 2 {
		return 0, ErrTooFewPoints
	}
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversineM(coords[i-1], coords[i])
	}
	return total, nil
}

// BBox returns the 2D bounding box of coords.
func BBox(coords []model.Coord) model.BoundingBox {
	b := model.BoundingBox{
		MinLon: coords[0].Lon, MaxLon: coords[0].Lon,
		MinLat: coords[0].Lat, MaxLat: coords[0].Lat,
	}
	for _, c := range coords[1:] {
		if c.Lon < b.MinLon {
			b.MinLon = c.Lon
		}
		if c.Lon > b.MaxLon {
			b.MaxLon = c.Lon
		}
		if c.Lat < b.MinLat {
			b.MinLat = c.Lat
		}
		if c.Lat > b.MaxLat {
			b.MaxLat = c.Lat
		}
	}
	return b
}
