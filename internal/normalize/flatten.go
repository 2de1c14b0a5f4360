// Package normalize implements the trail normalizer: the stage that makes
// raw input trails safe for planar topology before intersection detection
// runs against them.
package normalize

import (
	"fmt"

	"trailnet/internal/model"
)

// FlattenParts splits a possibly multi-part input trail into one Trail per
// contiguous part, deriving each part's SourceID by appending a 1-based
// part index to base. Parts with fewer than two points are dropped; the
// caller is responsible for feeding the dropped count into its counters.
//
// Adapters that read multi-linestring formats (a GPX file with several
// track segments, for instance) call this before staging, so every Trail
// that reaches the workspace already carries a single LineString.
func FlattenParts(base model.Trail, parts [][]model.Coord) []model.Trail {
	if len(parts) <= 1 {
		return []model.Trail{base}
	}
	out := make([]model.Trail, 0, len(parts))
	for i, part := range parts {
		if len(part) < 2 {
			continue
		}
		t := base
		t.SourceID = fmt.Sprintf("%s#%d", base.SourceID, i+1)
		t.Geometry = part
		out = append(out, t)
	}
	return out
}
