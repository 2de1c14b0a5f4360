// Package pocketbase adapts store.TrailSource and store.NetworkSink to a
// PocketBase app.Dao() handle, the storage engine this service runs on.
// Geometry is bridged through WKT (internal/geom), stored in a plain
// PocketBase text field rather than a dedicated geometry column.
package pocketbase

import (
	"context"
	"fmt"

	"github.com/pocketbase/pocketbase/daos"
	"github.com/pocketbase/pocketbase/models"

	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// TrailsCollection, NodesCollection, EdgesCollection, and
// CompositionCollection are the PocketBase collection names this adapter
// reads and writes. cmd/trailnetd's ensureNetworkCollections (run once at
// startup) creates the three network collections when missing; the trails
// collection is not created by this service.
const (
	TrailsCollection      = "trails"
	NodesCollection       = "network_nodes"
	EdgesCollection       = "network_edges"
	CompositionCollection = "network_composition"
)

// Source reads input Trails from the PocketBase trails collection.
type Source struct {
	dao *daos.Dao
}

// NewSource wraps an already-open PocketBase Dao as a store.TrailSource.
func NewSource(dao *daos.Dao) *Source {
	return &Source{dao: dao}
}

// Count returns the number of trail records matching sourceTag. bbox
// filtering happens in Stream, since PocketBase's filter language has no
// native bbox predicate over a WKT text field.
func (s *Source) Count(ctx context.Context, bbox model.BoundingBox, sourceTag string) (uint64, error) {
	filter := "source = {:source}"
	records, err := s.dao.FindRecordsByFilter(TrailsCollection, filter, "", 0, 0, map[string]interface{}{"source": sourceTag})
	if err != nil {
		return 0, fmt.Errorf("pocketbase: count trails: %w", err)
	}
	return uint64(len(records)), nil
}

// Stream fetches every trail record tagged sourceTag and yields those whose
// decoded geometry overlaps bbox.
func (s *Source) Stream(ctx context.Context, bbox model.BoundingBox, sourceTag string, yield func(model.Trail) (bool, error)) error {
	records, err := s.dao.FindRecordsByFilter(TrailsCollection, "source = {:source}", "+id", 0, 0, map[string]interface{}{"source": sourceTag})
	if err != nil {
		return fmt.Errorf("pocketbase: stream trails: %w", err)
	}
	for _, r := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		trail, err := recordToTrail(r)
		if err != nil {
			return fmt.Errorf("pocketbase: decode trail %s: %w", r.Id, err)
		}
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
	return nil
}

func recordToTrail(r *models.Record) (model.Trail, error) {
	coords, err := geom.DecodeWKT(r.GetString("geometry_wkt"))
	if err != nil {
		return model.Trail{}, err
	}
	t := model.Trail{
		SourceID:   r.GetString("source_id"),
		Name:       r.GetString("name"),
		Surface:    r.GetString("surface"),
		Difficulty: model.Difficulty(r.GetString("difficulty")),
		TrailType:  model.TrailType(r.GetString("trail_type")),
		Source:     model.Source(r.GetString("source")),
		Geometry:   coords,
	}
	if len(coords) > 0 {
		t.BBox = geom.BBox(coords)
		t.Start, t.End = coords[0], coords[len(coords)-1]
	}
	return t, nil
}

// Sink writes the finished network (nodes, edges, composition) to
// PocketBase collections inside one transaction per batch, satisfying the
// "accept all rows or none" contract store.NetworkSink requires.
type Sink struct {
	dao *daos.Dao
}

// NewSink wraps an already-open PocketBase Dao as a store.NetworkSink.
func NewSink(dao *daos.Dao) *Sink {
	return &Sink{dao: dao}
}

// PutNodes writes every node as one PocketBase record, atomically: a
// failure partway through rolls back every record in the batch.
func (s *Sink) PutNodes(ctx context.Context, nodes []model.Node) error {
	collection, err := s.dao.FindCollectionByNameOrId(NodesCollection)
	if err != nil {
		return fmt.Errorf("pocketbase: find %s collection: %w", NodesCollection, err)
	}
	return s.dao.RunInTransaction(func(txDao *daos.Dao) error {
		for _, n := range nodes {
			rec := models.NewRecord(collection)
			rec.Set("node_id", n.ID)
			rec.Set("lon", n.Point.Lon)
			rec.Set("lat", n.Point.Lat)
			rec.Set("elev", n.Point.Elev)
			rec.Set("degree", n.Degree)
			if err := txDao.SaveRecord(rec); err != nil {
				return fmt.Errorf("pocketbase: save node %d: %w", n.ID, err)
			}
		}
		return nil
	})
}

// PutEdges writes every edge and its composition rows atomically.
func (s *Sink) PutEdges(ctx context.Context, edges []model.Edge) error {
	edgeCollection, err := s.dao.FindCollectionByNameOrId(EdgesCollection)
	if err != nil {
		return fmt.Errorf("pocketbase: find %s collection: %w", EdgesCollection, err)
	}
	compCollection, err := s.dao.FindCollectionByNameOrId(CompositionCollection)
	if err != nil {
		return fmt.Errorf("pocketbase: find %s collection: %w", CompositionCollection, err)
	}

	return s.dao.RunInTransaction(func(txDao *daos.Dao) error {
		for _, e := range edges {
			wkt, err := geom.EncodeWKT(e.Geometry)
			if err != nil {
				return fmt.Errorf("pocketbase: encode edge %d geometry: %w", e.ID, err)
			}
			rec := models.NewRecord(edgeCollection)
			rec.Set("edge_id", e.ID)
			rec.Set("source_node", e.Source)
			rec.Set("target_node", e.Target)
			rec.Set("geometry_wkt", wkt)
			rec.Set("length_m", e.LengthM)
			rec.Set("elev_gain", e.ElevGain)
			rec.Set("elev_loss", e.ElevLoss)
			rec.Set("name", e.Name)
			rec.Set("surface", e.Surface)
			rec.Set("difficulty", string(e.Difficulty))
			rec.Set("trail_type", string(e.TrailType))
			if err := txDao.SaveRecord(rec); err != nil {
				return fmt.Errorf("pocketbase: save edge %d: %w", e.ID, err)
			}

			for _, c := range e.Composition {
				crec := models.NewRecord(compCollection)
				crec.Set("edge_id", e.ID)
				crec.Set("segment_seq", c.SegmentSeq)
				crec.Set("split_segment_id", c.SplitSegmentID)
				crec.Set("origin_id", c.OriginID)
				crec.Set("start_ratio", c.StartRatio)
				crec.Set("end_ratio", c.EndRatio)
				crec.Set("length_m", c.LengthM)
				if err := txDao.SaveRecord(crec); err != nil {
					return fmt.Errorf("pocketbase: save composition row for edge %d: %w", e.ID, err)
				}
			}
		}
		return nil
	})
}
