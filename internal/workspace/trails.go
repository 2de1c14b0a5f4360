package workspace

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"

	"trailnet/internal/geom"
	"trailnet/internal/model"
)

type trailRow struct {
	SourceID     string  `db:"source_id"`
	Name         string  `db:"name"`
	Surface      string  `db:"surface"`
	Difficulty   string  `db:"difficulty"`
	TrailType    string  `db:"trail_type"`
	Source       string  `db:"source"`
	GeometryWKT  string  `db:"geometry_wkt"`
	LengthM      float64 `db:"length_m"`
	MinLon       float64 `db:"min_lon"`
	MinLat       float64 `db:"min_lat"`
	MaxLon       float64 `db:"max_lon"`
	MaxLat       float64 `db:"max_lat"`
}

// PutTrail inserts or replaces a trail row, keyed on SourceID. Normalize
// re-derives and re-writes a trail's geometry in place, so this is an
// upsert rather than a plain insert.
func (w *Workspace) PutTrail(ctx context.Context, t model.Trail) error {
	wkt, err := geom.EncodeWKT(t.Geometry)
	if err != nil {
		return fmt.Errorf("workspace: encode trail %s geometry: %w", t.SourceID, err)
	}
	_, err = w.db.NewQuery(`
		INSERT OR REPLACE INTO trails
			(source_id, name, surface, difficulty, trail_type, source, geometry_wkt, length_m,
			 min_lon, min_lat, max_lon, max_lat)
		VALUES
			({:source_id}, {:name}, {:surface}, {:difficulty}, {:trail_type}, {:source}, {:geometry_wkt}, {:length_m},
			 {:min_lon}, {:min_lat}, {:max_lon}, {:max_lat})
	`).Bind(dbx.Params{
		"source_id":    t.SourceID,
		"name":         t.Name,
		"surface":      t.Surface,
		"difficulty":   string(t.Difficulty),
		"trail_type":   string(t.TrailType),
		"source":       string(t.Source),
		"geometry_wkt": wkt,
		"length_m":     t.LengthM,
		"min_lon":      t.BBox.MinLon,
		"min_lat":      t.BBox.MinLat,
		"max_lon":      t.BBox.MaxLon,
		"max_lat":      t.BBox.MaxLat,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: upsert trail %s: %w", t.SourceID, err)
	}
	return nil
}

// DeleteTrail removes a trail, used by the normalizer to drop trails that
// fail repair (degenerate geometry, below the minimum length floor).
func (w *Workspace) DeleteTrail(ctx context.Context, sourceID string) error {
	_, err := w.db.NewQuery(`DELETE FROM trails WHERE source_id = {:id}`).
		Bind(dbx.Params{"id": sourceID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: delete trail %s: %w", sourceID, err)
	}
	return nil
}

// ListTrails returns every staged trail, in source_id order so pipeline
// stages iterate deterministically.
func (w *Workspace) ListTrails(ctx context.Context) ([]model.Trail, error) {
	var rows []trailRow
	err := w.db.NewQuery(`SELECT * FROM trails ORDER BY source_id`).WithContext(ctx).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("workspace: list trails: %w", err)
	}
	out := make([]model.Trail, 0, len(rows))
	for _, r := range rows {
		t, err := rowToTrail(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func rowToTrail(r trailRow) (model.Trail, error) {
	coords, err := geom.DecodeWKT(r.GeometryWKT)
	if err != nil {
		return model.Trail{}, fmt.Errorf("workspace: decode trail %s geometry: %w", r.SourceID, err)
	}
	t := model.Trail{
		SourceID:   r.SourceID,
		Name:       r.Name,
		Surface:    r.Surface,
		Difficulty: model.Difficulty(r.Difficulty),
		TrailType:  model.TrailType(r.TrailType),
		Source:     model.Source(r.Source),
		Geometry:   coords,
		LengthM:    r.LengthM,
		BBox: model.BoundingBox{
			MinLon: r.MinLon, MinLat: r.MinLat,
			MaxLon: r.MaxLon, MaxLat: r.MaxLat,
		},
	}
	if len(coords) > 0 {
		t.Start, t.End = coords[0], coords[len(coords)-1]
	}
	return t, nil
}
