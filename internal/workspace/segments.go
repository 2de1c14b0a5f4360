package workspace

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"

	"trailnet/internal/geom"
	"trailnet/internal/model"
)

type splitSegmentRow struct {
	ID           string  `db:"id"`
	OriginID     string  `db:"origin_id"`
	SegmentIndex int     `db:"segment_index"`
	GeometryWKT  string  `db:"geometry_wkt"`
	LengthM      float64 `db:"length_m"`
	Name         string  `db:"name"`
	Surface      string  `db:"surface"`
	Difficulty   string  `db:"difficulty"`
	TrailType    string  `db:"trail_type"`
}

// PutSplitSegment stages a segment produced by cutting a trail at its
// accepted intersection points.
func (w *Workspace) PutSplitSegment(ctx context.Context, s model.SplitSegment) error {
	wkt, err := geom.EncodeWKT(s.Geometry)
	if err != nil {
		return fmt.Errorf("workspace: encode split segment %s geometry: %w", s.ID, err)
	}
	_, err = w.db.NewQuery(`
		INSERT OR REPLACE INTO split_segments
			(id, origin_id, segment_index, geometry_wkt, length_m, name, surface, difficulty, trail_type)
		VALUES
			({:id}, {:origin_id}, {:segment_index}, {:geometry_wkt}, {:length_m}, {:name}, {:surface}, {:difficulty}, {:trail_type})
	`).Bind(dbx.Params{
		"id":            s.ID,
		"origin_id":     s.OriginID,
		"segment_index": s.SegmentIndex,
		"geometry_wkt":  wkt,
		"length_m":      s.LengthM,
		"name":          s.Name,
		"surface":       s.Surface,
		"difficulty":    string(s.Difficulty),
		"trail_type":    string(s.TrailType),
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: put split segment %s: %w", s.ID, err)
	}
	return nil
}

// ListSplitSegments returns every staged split segment, ordered by origin
// trail then segment index so the noder can walk each trail's fragments in
// their original along-trail order.
func (w *Workspace) ListSplitSegments(ctx context.Context) ([]model.SplitSegment, error) {
	var rows []splitSegmentRow
	err := w.db.NewQuery(`SELECT * FROM split_segments ORDER BY origin_id, segment_index`).
		WithContext(ctx).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("workspace: list split segments: %w", err)
	}
	out := make([]model.SplitSegment, 0, len(rows))
	for _, r := range rows {
		coords, err := geom.DecodeWKT(r.GeometryWKT)
		if err != nil {
			return nil, fmt.Errorf("workspace: decode split segment %s geometry: %w", r.ID, err)
		}
		out = append(out, model.SplitSegment{
			ID:           r.ID,
			OriginID:     r.OriginID,
			SegmentIndex: r.SegmentIndex,
			Geometry:     coords,
			LengthM:      r.LengthM,
			Name:         r.Name,
			Surface:      r.Surface,
			Difficulty:   model.Difficulty(r.Difficulty),
			TrailType:    model.TrailType(r.TrailType),
		})
	}
	return out, nil
}
