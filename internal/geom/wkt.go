package geom

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"trailnet/internal/model"
)

// EncodeWKT renders coords as a WKT LINESTRING Z, the representation the
// storage adapters persist into a geometry column.
func EncodeWKT(coords []model.Coord) (string, error) {
	pl, err := NewPolyline(coords)
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(pl.LineString())
	if err != nil {
		return "", fmt.Errorf("geom: encode WKT: %w", err)
	}
	return s, nil
}

// DecodeWKT parses a WKT LINESTRING (Z optional) into model coordinates.
func DecodeWKT(s string) ([]model.Coord, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("geom: decode WKT: %w", err)
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, ErrNonLinear
	}
	raw := ls.Coords()
	out := make([]model.Coord, len(raw))
	for i, c := range raw {
		coord := model.Coord{Lon: c[0], Lat: c[1]}
		if len(c) > 2 {
			coord.Elev = c[2]
		}
		out[i] = coord
	}
	return out, nil
}
