// Package gpxsource implements a store.TrailSource over a directory of GPX
// files using github.com/tkrajina/gpxgo. It is a first-class, library-backed
// adapter rather than a one-off script's hand-rolled XML unmarshal, and
// doubles as the fixture source the test suite drives the pipeline against.
package gpxsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"trailnet/internal/geom"
	"trailnet/internal/model"
	"trailnet/internal/normalize"
)

// Source reads every *.gpx file in Dir, deriving SourceID from the file's
// base name. A file with several tracks or segments is flattened through
// the normalizer's FlattenParts, yielding one Trail per contiguous part
// with a derived part index, so every Trail reaching the pipeline is a
// single LineString.
type Source struct {
	Dir        string
	SourceTag  string
	Surface    string
	Difficulty model.Difficulty
	TrailType  model.TrailType
}

// New returns a gpxsource.Source rooted at dir, tagging every trail it
// yields with sourceTag.
func New(dir, sourceTag string) *Source {
	return &Source{Dir: dir, SourceTag: sourceTag}
}

// Count returns the number of .gpx files in Dir. bbox is not applied; the
// adapter is meant for small fixture/dev corpora where a full bbox index
// isn't worth building — Stream still only yields trails whose bbox
// overlaps the requested box.
func (s *Source) Count(ctx context.Context, bbox model.BoundingBox, sourceTag string) (uint64, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("gpxsource: read dir %s: %w", s.Dir, err)
	}
	var n uint64
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
			n++
		}
	}
	return n, nil
}

// Stream parses every .gpx file in Dir and yields one Trail per contiguous
// track segment whose bounding box overlaps bbox, stopping on the first
// error from gpx parsing or from yield itself.
func (s *Source) Stream(ctx context.Context, bbox model.BoundingBox, sourceTag string, yield func(model.Trail) (bool, error)) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("gpxsource: read dir %s: %w", s.Dir, err)
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		trails, err := s.parseTrails(path)
		if err != nil {
			return fmt.Errorf("gpxsource: parse %s: %w", path, err)
		}
		for _, trail := range trails {
			if !trail.BBox.Overlaps(bbox) {
				continue
			}
			cont, err := yield(trail)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}

func (s *Source) parseTrails(path string) ([]model.Trail, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var parts [][]model.Coord
	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			var coords []model.Coord
			for _, pt := range seg.Points {
				c := model.Coord{Lon: pt.Longitude, Lat: pt.Latitude}
				if pt.Elevation.NotNull() {
					c.Elev = pt.Elevation.Value()
				}
				coords = append(coords, c)
			}
			if len(coords) >= 2 {
				parts = append(parts, coords)
			}
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}

	fileBase := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := g.Tracks[0].Name
	if name == "" {
		name = fileBase
	}

	base := model.Trail{
		SourceID:   fileBase,
		Name:       name,
		Surface:    s.Surface,
		Difficulty: s.Difficulty,
		TrailType:  s.TrailType,
		Source:     model.Source(s.SourceTag),
		Geometry:   parts[0],
	}

	out := normalize.FlattenParts(base, parts)
	for i := range out {
		coords := out[i].Geometry
		out[i].BBox = geom.BBox(coords)
		out[i].Start, out[i].End = coords[0], coords[len(coords)-1]
	}
	return out, nil
}
