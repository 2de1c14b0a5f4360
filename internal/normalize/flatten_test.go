package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/model"
)

func TestFlattenPartsSinglePartReturnsOriginal(t *testing.T) {
	base := model.Trail{SourceID: "a", Geometry: []model.Coord{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}}
	out := FlattenParts(base, [][]model.Coord{base.Geometry})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].SourceID)
}

func TestFlattenPartsMultiPartDerivesSourceIDs(t *testing.T) {
	base := model.Trail{SourceID: "a"}
	parts := [][]model.Coord{
		{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}},
		{{Lon: 2, Lat: 2}, {Lon: 3, Lat: 3}},
	}
	out := FlattenParts(base, parts)
	require.Len(t, out, 2)
	assert.Equal(t, "a#1", out[0].SourceID)
	assert.Equal(t, "a#2", out[1].SourceID)
}

func TestFlattenPartsDropsDegenerateParts(t *testing.T) {
	base := model.Trail{SourceID: "a"}
	parts := [][]model.Coord{
		{{Lon: 0, Lat: 0}}, // degenerate, single point
		{{Lon: 2, Lat: 2}, {Lon: 3, Lat: 3}},
	}
	out := FlattenParts(base, parts)
	require.Len(t, out, 1)
	assert.Equal(t, "a#2", out[0].SourceID)
}
