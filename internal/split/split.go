// Package split implements the splitter: it cuts each trail at its
// retained intersection points and emits the resulting SplitSegments.
package split

import (
	"fmt"
	"sort"

	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// trailCuts collects the fractional split positions retained for one
// trail, plus any T-intersection endpoint snaps that must be applied to
// its own terminal vertices before cutting.
type trailCuts struct {
	ratios    []float64
	snapStart *model.Coord
	snapEnd   *model.Coord
}

// Split cuts every trail in trails at the positions implied by points
// (already deduplicated and filtered by the detector), returning the full
// SplitSegment set across all trails plus a recoverable-error report for
// any split abandoned due to the length floor.
func Split(cfg *config.Config, trails []model.Trail, points []model.IntersectionPoint) ([]model.SplitSegment, *errs.Report) {
	report := errs.NewReport()
	cutsByTrail := collectCuts(trails, points, cfg)

	var out []model.SplitSegment
	for i, t := range trails {
		c := cutsByTrail[i]
		coords := applySnaps(t.Geometry, c)

		var pieces [][]model.Coord
		if c == nil || len(c.ratios) == 0 {
			pieces = [][]model.Coord{coords}
		} else {
			pieces = geom.SplitAt(coords, c.ratios, cfg.SplitRatioEpsilon, cfg.MinSegmentLengthM)
			if len(pieces) == 0 {
				// Every cut would have produced a sliver; leave the trail
				// whole rather than losing it entirely.
				pieces = [][]model.Coord{coords}
				report.Add(errs.Geom(t.SourceID, "all candidate splits abandoned; trail left whole", nil))
			}
		}

		for segIdx, piece := range pieces {
			length, err := geom.LengthM(piece)
			if err != nil {
				report.Add(errs.Geom(t.SourceID, "split segment length computation failed", err))
				continue
			}
			out = append(out, model.SplitSegment{
				ID:           fmt.Sprintf("%s::%d", t.SourceID, segIdx+1),
				OriginID:     t.SourceID,
				SegmentIndex: segIdx + 1,
				Geometry:     piece,
				LengthM:      length,
				Name:         t.Name,
				Surface:      t.Surface,
				Difficulty:   t.Difficulty,
				TrailType:    t.TrailType,
			})
		}
	}
	return out, report
}

// collectCuts groups the retained intersection points by which trail(s)
// they apply to, converting connected source ids and point coordinates
// into per-trail fractional ratios and endpoint snaps.
func collectCuts(trails []model.Trail, points []model.IntersectionPoint, cfg *config.Config) map[int]*trailCuts {
	bySource := make(map[string]int, len(trails))
	for i, t := range trails {
		bySource[t.SourceID] = i
	}

	cuts := make(map[int]*trailCuts)
	ensure := func(idx int) *trailCuts {
		if c, ok := cuts[idx]; ok {
			return c
		}
		c := &trailCuts{}
		cuts[idx] = c
		return c
	}

	for _, p := range points {
		for _, srcID := range p.ConnectedSourceIDs {
			idx, ok := bySource[srcID]
			if !ok {
				continue
			}
			t := trails[idx]
			res := geom.ClosestPointOn(t.Geometry, p.Point)

			switch p.Kind {
			case model.KindEndpointOnLine:
				// The visited trail gets a mid-trail cut; the visiting
				// trail (whose endpoint this point snaps to) doesn't need
				// a new ratio, just a terminal-vertex snap.
				if res.Ratio > cfg.SplitRatioEpsilon && res.Ratio < 1-cfg.SplitRatioEpsilon {
					ensure(idx).ratios = append(ensure(idx).ratios, res.Ratio)
				} else {
					snapEndpoint(ensure(idx), t, p.Point)
				}
			default:
				if res.Ratio > cfg.SplitRatioEpsilon && res.Ratio < 1-cfg.SplitRatioEpsilon {
					ensure(idx).ratios = append(ensure(idx).ratios, res.Ratio)
				}
			}
		}
	}

	for _, c := range cuts {
		sort.Float64s(c.ratios)
	}
	return cuts
}

func snapEndpoint(c *trailCuts, t model.Trail, pt model.Coord) {
	startDist, endDist := dist2(t.Start, pt), dist2(t.End, pt)
	if startDist <= endDist {
		c.snapStart = &pt
	} else {
		c.snapEnd = &pt
	}
}

func dist2(a, b model.Coord) float64 {
	dLon, dLat := a.Lon-b.Lon, a.Lat-b.Lat
	return dLon*dLon + dLat*dLat
}

// applySnaps returns coords with its terminal vertices replaced per any
// recorded T-intersection snap, leaving every interior vertex untouched.
func applySnaps(coords []model.Coord, c *trailCuts) []model.Coord {
	if c == nil || (c.snapStart == nil && c.snapEnd == nil) {
		return coords
	}
	out := make([]model.Coord, len(coords))
	copy(out, coords)
	if c.snapStart != nil {
		out[0] = model.Coord{Lon: c.snapStart.Lon, Lat: c.snapStart.Lat, Elev: out[0].Elev}
	}
	if c.snapEnd != nil {
		last := len(out) - 1
		out[last] = model.Coord{Lon: c.snapEnd.Lon, Lat: c.snapEnd.Lat, Elev: out[last].Elev}
	}
	return out
}
