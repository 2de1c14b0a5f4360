// Package store declares the external interfaces the core pipeline runs
// against: a pull source of input Trails and a push sink for the finished
// Edge/Node/Composition network. The spatial store itself, and the SQL or
// PocketBase transport underneath it, live behind these two interfaces so
// the core never depends on a specific storage engine.
package store

import (
	"context"

	"trailnet/internal/model"
)

// TrailSource is the pull interface the pipeline reads input trails from,
// scoped to a bounding box and a source tag (the caller's chosen origin
// dataset; the core never reconciles two sources itself).
type TrailSource interface {
	// Count returns the number of trails the source would yield for bbox
	// and sourceTag, used for progress reporting before a run starts.
	Count(ctx context.Context, bbox model.BoundingBox, sourceTag string) (uint64, error)

	// Stream yields every matching trail to yield, in source-defined order,
	// stopping and returning the first error either side produces. A false
	// return from yield stops iteration early without error.
	Stream(ctx context.Context, bbox model.BoundingBox, sourceTag string, yield func(model.Trail) (bool, error)) error
}

// NetworkResult is the final output of one pipeline run: the finished
// network plus the flat violations manifest and per-stage counters.
type NetworkResult struct {
	Nodes      []model.Node
	Edges      []model.Edge
	Violations []string
	Counters   map[string]int
}

// NetworkSink is the push interface the pipeline writes its result to.
// Each of PutNodes/PutEdges must be atomic per batch: callers accept every
// row in a batch or none, never a partial write.
type NetworkSink interface {
	PutNodes(ctx context.Context, nodes []model.Node) error
	PutEdges(ctx context.Context, edges []model.Edge) error
}
