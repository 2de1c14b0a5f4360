package merge

import (
	"trailnet/internal/geom"
	"trailnet/internal/model"
)

// splitRingAtMidpoint cuts a merged isolated-cycle edge (source == target,
// the synthetic promoted vertex) into two edges joined by a freshly
// synthesized node at the ring's own midpoint vertex, the same technique
// the noder uses to break a raw self-loop trail. Without this the ring
// would collapse to a single self-loop edge, which the network forbids.
func splitRingAtMidpoint(g *graph, ring model.Edge) (model.Edge, model.Edge, int64) {
	coords := ring.Geometry
	midIdx := len(coords) / 2
	midPt := coords[midIdx]
	midID := g.addNode(midPt)

	firstCoords := coords[:midIdx+1]
	secondCoords := coords[midIdx:]

	firstLen, _ := geom.LengthM(firstCoords)
	secondLen, _ := geom.LengthM(secondCoords)
	total := firstLen + secondLen
	splitRatio := 0.5
	if total > 0 {
		splitRatio = firstLen / total
	}

	firstRows, secondRows := splitComposition(ring.Composition, splitRatio)
	rescaleComposition(firstRows, firstLen)
	rescaleComposition(secondRows, secondLen)
	renumberComposition(firstRows)
	renumberComposition(secondRows)

	e1 := model.Edge{
		Source:      ring.Source,
		Target:      midID,
		Geometry:    firstCoords,
		LengthM:     firstLen,
		ElevGain:    elevGain(firstCoords),
		ElevLoss:    elevLoss(firstCoords),
		Name:        ring.Name,
		Surface:     ring.Surface,
		Difficulty:  ring.Difficulty,
		TrailType:   ring.TrailType,
		Composition: firstRows,
	}
	e2 := model.Edge{
		Source:      midID,
		Target:      ring.Target,
		Geometry:    secondCoords,
		LengthM:     secondLen,
		ElevGain:    elevGain(secondCoords),
		ElevLoss:    elevLoss(secondCoords),
		Name:        ring.Name,
		Surface:     ring.Surface,
		Difficulty:  ring.Difficulty,
		TrailType:   ring.TrailType,
		Composition: secondRows,
	}
	return e1, e2, midID
}

// splitComposition divides rows (covering [0,1] of the original ring edge)
// at splitRatio, duplicating and rescaling any row that straddles the cut
// so both halves still cover their own span contiguously.
func splitComposition(rows []model.CompositionRow, splitRatio float64) (first, second []model.CompositionRow) {
	for _, r := range rows {
		switch {
		case r.EndRatio <= splitRatio:
			first = append(first, r)
		case r.StartRatio >= splitRatio:
			second = append(second, r)
		default:
			span := r.EndRatio - r.StartRatio
			if span <= 0 {
				second = append(second, r)
				continue
			}
			frac := (splitRatio - r.StartRatio) / span
			left := r
			left.EndRatio = splitRatio
			left.LengthM = r.LengthM * frac
			right := r
			right.StartRatio = splitRatio
			right.LengthM = r.LengthM * (1 - frac)
			first = append(first, left)
			second = append(second, right)
		}
	}
	return first, second
}

func renumberComposition(rows []model.CompositionRow) {
	for i := range rows {
		rows[i].SegmentSeq = i + 1
	}
}

func elevGain(coords []model.Coord) float64 {
	var g float64
	for i := 1; i < len(coords); i++ {
		if d := coords[i].Elev - coords[i-1].Elev; d > 0 {
			g += d
		}
	}
	return g
}

func elevLoss(coords []model.Coord) float64 {
	var l float64
	for i := 1; i < len(coords); i++ {
		if d := coords[i-1].Elev - coords[i].Elev; d > 0 {
			l += d
		}
	}
	return l
}
