package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/model"
)

func straightLine() []model.Coord {
	return []model.Coord{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 1},
		{Lon: 0, Lat: 2},
		{Lon: 0, Lat: 3},
	}
}

func TestSubstringMidpoint(t *testing.T) {
	coords := straightLine()
	seg, err := Substring(coords, 0.25, 0.75, 0)
	require.NoError(t, err)
	require.Len(t, seg, 4)
	assert.InDelta(t, 0.75, seg[0].Lat, 1e-6)
	assert.InDelta(t, 2.25, seg[len(seg)-1].Lat, 1e-6)
}

func TestSubstringDegenerateBounds(t *testing.T) {
	coords := straightLine()
	_, err := Substring(coords, 0.75, 0.25, 0)
	assert.ErrorIs(t, err, ErrDegenerateSubstring)
}

func TestSubstringTooShort(t *testing.T) {
	coords := straightLine()
	_, err := Substring(coords, 0.0, 0.001, 10000)
	assert.ErrorIs(t, err, ErrSubstringTooShort)
}

func TestSplitAtProducesOrderedSegments(t *testing.T) {
	coords := straightLine()
	segments := SplitAt(coords, []float64{0.5}, 0.001, 0)
	require.Len(t, segments, 2)
	assert.InDelta(t, 1.5, segments[0][len(segments[0])-1].Lat, 1e-6)
	assert.InDelta(t, 1.5, segments[1][0].Lat, 1e-6)
}

// TestSplitAtCommutesWithSequentialSplitting: cutting at two disjoint
// positions in one pass equals cutting at the first, then cutting the
// resulting tail at the corresponding local position.
func TestSplitAtCommutesWithSequentialSplitting(t *testing.T) {
	coords := straightLine()

	allAtOnce := SplitAt(coords, []float64{0.5, 0.8}, 0.001, 0)
	require.Len(t, allAtOnce, 3)

	first := SplitAt(coords, []float64{0.5}, 0.001, 0)
	require.Len(t, first, 2)
	// 0.8 on the whole line is (0.8-0.5)/(1-0.5) = 0.6 of the tail piece.
	tail := SplitAt(first[1], []float64{0.6}, 0.001, 0)
	require.Len(t, tail, 2)

	sequential := [][]model.Coord{first[0], tail[0], tail[1]}
	require.Len(t, sequential, len(allAtOnce))
	for i := range allAtOnce {
		require.Len(t, sequential[i], len(allAtOnce[i]))
		for j := range allAtOnce[i] {
			assert.InDelta(t, allAtOnce[i][j].Lon, sequential[i][j].Lon, 1e-9)
			assert.InDelta(t, allAtOnce[i][j].Lat, sequential[i][j].Lat, 1e-9)
		}
	}
}

func TestSplitAtDropsCutsBelowFloor(t *testing.T) {
	coords := straightLine()
	// Two cuts extremely close together: the middle segment should be
	// abandoned rather than producing a near-zero-length fragment.
	segments := SplitAt(coords, []float64{0.5, 0.50001}, 0.001, 50000)
	for _, seg := range segments {
		length, err := LengthM(seg)
		require.NoError(t, err)
		assert.Greater(t, length, 0.0)
	}
}

// TestSplitAtFusesShortTailIntoPrecedingSegment: a cut stranding a final
// segment below the floor is retired, extending the preceding segment to
// the end of the line.
func TestSplitAtFusesShortTailIntoPrecedingSegment(t *testing.T) {
	coords := straightLine()
	segments := SplitAt(coords, []float64{0.5, 0.999}, 0.001, 50000)
	require.Len(t, segments, 2)
	assert.InDelta(t, 1.5, segments[1][0].Lat, 1e-6)
	assert.InDelta(t, 3.0, segments[1][len(segments[1])-1].Lat, 1e-6)

	for _, seg := range segments {
		length, err := LengthM(seg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, length, 50000.0)
	}
}

// TestSplitAtDropsLoneCutNearTrailEnd: a single cut too close to the
// line's terminus leaves the line whole.
func TestSplitAtDropsLoneCutNearTrailEnd(t *testing.T) {
	coords := straightLine()
	segments := SplitAt(coords, []float64{0.999}, 0.001, 50000)
	require.Len(t, segments, 1)
	assert.InDelta(t, 0.0, segments[0][0].Lat, 1e-6)
	assert.InDelta(t, 3.0, segments[0][len(segments[0])-1].Lat, 1e-6)
}
