package workspace

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"

	"trailnet/internal/geom"
	"trailnet/internal/model"
)

type nodeRow struct {
	ID     int64   `db:"id"`
	Lon    float64 `db:"lon"`
	Lat    float64 `db:"lat"`
	Elev   float64 `db:"elev"`
	Degree int     `db:"degree"`
}

// PutNode stages a node. The noder assigns ids itself (stable, increasing
// within a run) so this is an upsert keyed on that id.
func (w *Workspace) PutNode(ctx context.Context, n model.Node) error {
	_, err := w.db.NewQuery(`
		INSERT OR REPLACE INTO nodes (id, lon, lat, elev, degree)
		VALUES ({:id}, {:lon}, {:lat}, {:elev}, {:degree})
	`).Bind(dbx.Params{
		"id":     n.ID,
		"lon":    n.Point.Lon,
		"lat":    n.Point.Lat,
		"elev":   n.Point.Elev,
		"degree": n.Degree,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: put node %d: %w", n.ID, err)
	}
	return nil
}

// ListNodes returns every staged node in ascending id order.
func (w *Workspace) ListNodes(ctx context.Context) ([]model.Node, error) {
	var rows []nodeRow
	if err := w.db.NewQuery(`SELECT * FROM nodes ORDER BY id`).WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("workspace: list nodes: %w", err)
	}
	out := make([]model.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Node{
			ID:     r.ID,
			Point:  model.Coord{Lon: r.Lon, Lat: r.Lat, Elev: r.Elev},
			Degree: r.Degree,
		})
	}
	return out, nil
}

// SetNodeDegree updates a single node's degree, used by the merger after it
// collapses a chain and the node's incident-edge count changes.
func (w *Workspace) SetNodeDegree(ctx context.Context, id int64, degree int) error {
	_, err := w.db.NewQuery(`UPDATE nodes SET degree = {:degree} WHERE id = {:id}`).
		Bind(dbx.Params{"degree": degree, "id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: set node %d degree: %w", id, err)
	}
	return nil
}

// DeleteNode removes a node, used when the merger promotes a synthetic
// midpoint and retires the two chain-interior nodes on either side of it.
func (w *Workspace) DeleteNode(ctx context.Context, id int64) error {
	_, err := w.db.NewQuery(`DELETE FROM nodes WHERE id = {:id}`).
		Bind(dbx.Params{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: delete node %d: %w", id, err)
	}
	return nil
}

type edgeRow struct {
	ID          int64   `db:"id"`
	SourceNode  int64   `db:"source_node"`
	TargetNode  int64   `db:"target_node"`
	GeometryWKT string  `db:"geometry_wkt"`
	LengthM     float64 `db:"length_m"`
	ElevGain    float64 `db:"elev_gain"`
	ElevLoss    float64 `db:"elev_loss"`
	Name        string  `db:"name"`
	Surface     string  `db:"surface"`
	Difficulty  string  `db:"difficulty"`
	TrailType   string  `db:"trail_type"`
}

// PutEdge stages an edge and its composition rows in one transaction. The
// node stage calls this for the edges created directly from split segments;
// the merge stage swaps in its merged edges through ReplaceEdges instead.
func (w *Workspace) PutEdge(ctx context.Context, e model.Edge) error {
	return w.db.Transactional(func(tx *dbx.Tx) error {
		return w.putEdgeTx(ctx, tx, e)
	})
}

func (w *Workspace) putEdgeTx(ctx context.Context, tx *dbx.Tx, e model.Edge) error {
	wkt, err := geom.EncodeWKT(e.Geometry)
	if err != nil {
		return fmt.Errorf("workspace: encode edge %d geometry: %w", e.ID, err)
	}
	_, err = tx.NewQuery(`
		INSERT OR REPLACE INTO edges
			(id, source_node, target_node, geometry_wkt, length_m, elev_gain, elev_loss, name, surface, difficulty, trail_type)
		VALUES
			({:id}, {:source}, {:target}, {:geometry_wkt}, {:length_m}, {:elev_gain}, {:elev_loss}, {:name}, {:surface}, {:difficulty}, {:trail_type})
	`).Bind(dbx.Params{
		"id":           e.ID,
		"source":       e.Source,
		"target":       e.Target,
		"geometry_wkt": wkt,
		"length_m":     e.LengthM,
		"elev_gain":    e.ElevGain,
		"elev_loss":    e.ElevLoss,
		"name":         e.Name,
		"surface":      e.Surface,
		"difficulty":   string(e.Difficulty),
		"trail_type":   string(e.TrailType),
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("workspace: put edge %d: %w", e.ID, err)
	}

	if _, err := tx.NewQuery(`DELETE FROM composition WHERE edge_id = {:id}`).
		Bind(dbx.Params{"id": e.ID}).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("workspace: clear composition for edge %d: %w", e.ID, err)
	}
	for _, c := range e.Composition {
		_, err := tx.NewQuery(`
			INSERT INTO composition (edge_id, segment_seq, split_segment_id, origin_id, start_ratio, end_ratio, length_m)
			VALUES ({:edge_id}, {:seq}, {:split_segment_id}, {:origin_id}, {:start_ratio}, {:end_ratio}, {:length_m})
		`).Bind(dbx.Params{
			"edge_id":          e.ID,
			"seq":              c.SegmentSeq,
			"split_segment_id": c.SplitSegmentID,
			"origin_id":        c.OriginID,
			"start_ratio":      c.StartRatio,
			"end_ratio":        c.EndRatio,
			"length_m":         c.LengthM,
		}).WithContext(ctx).Execute()
		if err != nil {
			return fmt.Errorf("workspace: put composition row for edge %d: %w", e.ID, err)
		}
	}
	return nil
}

// ReplaceEdges atomically deletes oldIDs and inserts replacements — the
// merger's unit of work each time it collapses one degree-2 chain into a
// single edge.
func (w *Workspace) ReplaceEdges(ctx context.Context, oldIDs []int64, replacements []model.Edge) error {
	return w.db.Transactional(func(tx *dbx.Tx) error {
		for _, id := range oldIDs {
			if _, err := tx.NewQuery(`DELETE FROM composition WHERE edge_id = {:id}`).
				Bind(dbx.Params{"id": id}).WithContext(ctx).Execute(); err != nil {
				return fmt.Errorf("workspace: delete composition for edge %d: %w", id, err)
			}
			if _, err := tx.NewQuery(`DELETE FROM edges WHERE id = {:id}`).
				Bind(dbx.Params{"id": id}).WithContext(ctx).Execute(); err != nil {
				return fmt.Errorf("workspace: delete edge %d: %w", id, err)
			}
		}
		for _, e := range replacements {
			if err := w.putEdgeTx(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListEdges returns every staged edge, with its composition populated and
// ordered by SegmentSeq.
func (w *Workspace) ListEdges(ctx context.Context) ([]model.Edge, error) {
	var rows []edgeRow
	if err := w.db.NewQuery(`SELECT * FROM edges ORDER BY id`).WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("workspace: list edges: %w", err)
	}
	out := make([]model.Edge, 0, len(rows))
	for _, r := range rows {
		coords, err := geom.DecodeWKT(r.GeometryWKT)
		if err != nil {
			return nil, fmt.Errorf("workspace: decode edge %d geometry: %w", r.ID, err)
		}
		comp, err := w.compositionForEdge(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Edge{
			ID:          r.ID,
			Source:      r.SourceNode,
			Target:      r.TargetNode,
			Geometry:    coords,
			LengthM:     r.LengthM,
			ElevGain:    r.ElevGain,
			ElevLoss:    r.ElevLoss,
			Name:        r.Name,
			Surface:     r.Surface,
			Difficulty:  model.Difficulty(r.Difficulty),
			TrailType:   model.TrailType(r.TrailType),
			Composition: comp,
		})
	}
	return out, nil
}

type compositionRow struct {
	SplitSegmentID string  `db:"split_segment_id"`
	OriginID       string  `db:"origin_id"`
	SegmentSeq     int     `db:"segment_seq"`
	StartRatio     float64 `db:"start_ratio"`
	EndRatio       float64 `db:"end_ratio"`
	LengthM        float64 `db:"length_m"`
}

func (w *Workspace) compositionForEdge(ctx context.Context, edgeID int64) ([]model.CompositionRow, error) {
	var rows []compositionRow
	err := w.db.NewQuery(`SELECT * FROM composition WHERE edge_id = {:id} ORDER BY segment_seq`).
		Bind(dbx.Params{"id": edgeID}).WithContext(ctx).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("workspace: list composition for edge %d: %w", edgeID, err)
	}
	out := make([]model.CompositionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CompositionRow{
			SplitSegmentID: r.SplitSegmentID,
			OriginID:       r.OriginID,
			SegmentSeq:     r.SegmentSeq,
			StartRatio:     r.StartRatio,
			EndRatio:       r.EndRatio,
			LengthM:        r.LengthM,
		})
	}
	return out, nil
}

// EdgesIncidentTo returns the edges whose source or target node is id, in
// ascending edge id order.
func (w *Workspace) EdgesIncidentTo(ctx context.Context, id int64) ([]model.Edge, error) {
	var rows []edgeRow
	err := w.db.NewQuery(`SELECT * FROM edges WHERE source_node = {:id} OR target_node = {:id} ORDER BY id`).
		Bind(dbx.Params{"id": id}).WithContext(ctx).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("workspace: list edges incident to node %d: %w", id, err)
	}
	out := make([]model.Edge, 0, len(rows))
	for _, r := range rows {
		coords, err := geom.DecodeWKT(r.GeometryWKT)
		if err != nil {
			return nil, fmt.Errorf("workspace: decode edge %d geometry: %w", r.ID, err)
		}
		comp, err := w.compositionForEdge(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Edge{
			ID:          r.ID,
			Source:      r.SourceNode,
			Target:      r.TargetNode,
			Geometry:    coords,
			LengthM:     r.LengthM,
			ElevGain:    r.ElevGain,
			ElevLoss:    r.ElevLoss,
			Name:        r.Name,
			Surface:     r.Surface,
			Difficulty:  model.Difficulty(r.Difficulty),
			TrailType:   model.TrailType(r.TrailType),
			Composition: comp,
		})
	}
	return out, nil
}
