package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"

	"trailnet/internal/model"
)

type intersectionRow struct {
	ID                 int64   `db:"id"`
	Lon                float64 `db:"lon"`
	Lat                float64 `db:"lat"`
	Elev               float64 `db:"elev"`
	Kind               string  `db:"kind"`
	ConnectedSourceIDs string  `db:"connected_source_ids"`
	DistanceM          float64 `db:"distance_m"`
}

// PutIntersectionPoint stages a detected intersection point. The detector
// calls this once per accepted candidate after tolerance-based dedup; the
// splitter later reads the full set back via ListIntersectionPoints.
func (w *Workspace) PutIntersectionPoint(ctx context.Context, p model.IntersectionPoint) error {
	_, err := w.db.NewQuery(`
		INSERT INTO intersection_points (lon, lat, elev, kind, connected_source_ids, distance_m)
		VALUES ({:lon}, {:lat}, {:elev}, {:kind}, {:ids}, {:dist})
	`).Bind(dbx.Params{
		"lon":  p.Point.Lon,
		"lat":  p.Point.Lat,
		"elev": p.Point.Elev,
		"kind": string(p.Kind),
		"ids":  strings.Join(p.ConnectedSourceIDs, ","),
		"dist": p.DistanceMeters,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: put intersection point: %w", err)
	}
	return nil
}

// ListIntersectionPoints returns every staged intersection point, in
// insertion order (the order the detector produced them).
func (w *Workspace) ListIntersectionPoints(ctx context.Context) ([]model.IntersectionPoint, error) {
	var rows []intersectionRow
	if err := w.db.NewQuery(`SELECT * FROM intersection_points ORDER BY id`).WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("workspace: list intersection points: %w", err)
	}
	out := make([]model.IntersectionPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.IntersectionPoint{
			Point:              model.Coord{Lon: r.Lon, Lat: r.Lat, Elev: r.Elev},
			ConnectedSourceIDs: strings.Split(r.ConnectedSourceIDs, ","),
			Kind:               model.IntersectionKind(r.Kind),
			DistanceMeters:     r.DistanceM,
		})
	}
	return out, nil
}

// ClearIntersectionPoints truncates the intersection_points table. The
// pipeline calls this before a re-run of the detector stage, since
// detection is idempotent only if it starts from an empty table.
func (w *Workspace) ClearIntersectionPoints(ctx context.Context) error {
	_, err := w.db.NewQuery(`DELETE FROM intersection_points`).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: clear intersection points: %w", err)
	}
	return nil
}
