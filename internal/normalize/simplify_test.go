package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trailnet/internal/model"
)

func TestSimplifyRemovesCollinearVertex(t *testing.T) {
	coords := []model.Coord{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0.0000001}, // near-collinear, within tolerance
		{Lon: 2, Lat: 0},
	}
	out := simplify(coords, 0.001)
	assert.Len(t, out, 2)
	assert.Equal(t, coords[0], out[0])
	assert.Equal(t, coords[2], out[1])
}

func TestSimplifyKeepsSignificantVertex(t *testing.T) {
	coords := []model.Coord{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 5}, // well outside tolerance of the 0,0 -> 2,0 chord
		{Lon: 2, Lat: 0},
	}
	out := simplify(coords, 0.001)
	assert.Len(t, out, 3)
}

func TestSimplifyShortInputUnchanged(t *testing.T) {
	coords := []model.Coord{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}
	out := simplify(coords, 0.001)
	assert.Equal(t, coords, out)
}
