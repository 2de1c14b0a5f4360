package merge

import (
	"trailnet/internal/model"
)

// buildMergedEdge concatenates a chain's edges into one new edge. The
// returned edge's ID is left zero; the caller assigns a fresh one.
func buildMergedEdge(g *graph, c chain) model.Edge {
	var geometry []model.Coord
	var totalLength float64
	var elevGain, elevLoss float64

	names := make(map[string]int)
	surfaces := make(map[string]int)
	difficulties := make(map[model.Difficulty]int)
	trailTypes := make(map[model.TrailType]int)
	nameOrder := make([]string, 0)
	surfaceOrder := make([]string, 0)
	difficultyOrder := make([]model.Difficulty, 0)
	trailTypeOrder := make([]model.TrailType, 0)

	var composition []model.CompositionRow
	seq := 1

	for _, oe := range c.edges {
		e := g.edges[oe.id]
		coords := e.Geometry
		if oe.reversed {
			coords = reverseCoords(coords)
		}
		if len(geometry) > 0 && len(coords) > 0 {
			// Drop the duplicate join vertex shared with the previous edge.
			coords = coords[1:]
		}
		geometry = append(geometry, coords...)
		totalLength += e.LengthM
		// Gain along a segment becomes loss when the walk traverses it
		// against its stored direction.
		if oe.reversed {
			elevGain += e.ElevLoss
			elevLoss += e.ElevGain
		} else {
			elevGain += e.ElevGain
			elevLoss += e.ElevLoss
		}

		if _, ok := names[e.Name]; !ok {
			nameOrder = append(nameOrder, e.Name)
		}
		names[e.Name]++
		if _, ok := surfaces[e.Surface]; !ok {
			surfaceOrder = append(surfaceOrder, e.Surface)
		}
		surfaces[e.Surface]++
		if _, ok := difficulties[e.Difficulty]; !ok {
			difficultyOrder = append(difficultyOrder, e.Difficulty)
		}
		difficulties[e.Difficulty]++
		if _, ok := trailTypes[e.TrailType]; !ok {
			trailTypeOrder = append(trailTypeOrder, e.TrailType)
		}
		trailTypes[e.TrailType]++

		rows := e.Composition
		if oe.reversed {
			rows = reverseComposition(rows)
		}
		for _, r := range rows {
			r.SegmentSeq = seq
			seq++
			composition = append(composition, r)
		}
	}

	rescaleComposition(composition, totalLength)

	return model.Edge{
		Source:      c.v0,
		Target:      c.vn,
		Geometry:    geometry,
		LengthM:     totalLength,
		ElevGain:    elevGain,
		ElevLoss:    elevLoss,
		Name:        modeString(names, nameOrder),
		Surface:     modeString(surfaces, surfaceOrder),
		Difficulty:  modeDifficulty(difficulties, difficultyOrder),
		TrailType:   modeTrailType(trailTypes, trailTypeOrder),
		Composition: composition,
	}
}

func reverseCoords(coords []model.Coord) []model.Coord {
	out := make([]model.Coord, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

func reverseComposition(rows []model.CompositionRow) []model.CompositionRow {
	out := make([]model.CompositionRow, len(rows))
	for i, r := range rows {
		r.StartRatio, r.EndRatio = 1-r.EndRatio, 1-r.StartRatio
		out[len(rows)-1-i] = r
	}
	return out
}

// rescaleComposition converts each row's per-constituent-edge length into
// a fractional position along the newly merged edge, preserving contiguous
// end-to-end coverage.
func rescaleComposition(rows []model.CompositionRow, totalLength float64) {
	if totalLength <= 0 {
		return
	}
	var cursor float64
	for i := range rows {
		start := cursor / totalLength
		cursor += rows[i].LengthM
		end := cursor / totalLength
		rows[i].StartRatio = start
		rows[i].EndRatio = end
	}
	if len(rows) > 0 {
		rows[len(rows)-1].EndRatio = 1.0
	}
}

// modeString returns the most-common value in counts, ties broken by first
// occurrence in order.
func modeString(counts map[string]int, order []string) string {
	best := order[0]
	bestCount := counts[best]
	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func modeDifficulty(counts map[model.Difficulty]int, order []model.Difficulty) model.Difficulty {
	best := order[0]
	bestCount := counts[best]
	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func modeTrailType(counts map[model.TrailType]int, order []model.TrailType) model.TrailType {
	best := order[0]
	bestCount := counts[best]
	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}
