package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/model"
)

func TestCrossesDetectsXIntersection(t *testing.T) {
	a := []model.Coord{{Lon: -1, Lat: 0}, {Lon: 1, Lat: 0}}
	b := []model.Coord{{Lon: 0, Lat: -1}, {Lon: 0, Lat: 1}}
	assert.True(t, Crosses(a, b))

	pts := CrossingPoints(a, b)
	require.Len(t, pts, 1)
	assert.InDelta(t, 0.0, pts[0].Lon, 1e-9)
	assert.InDelta(t, 0.0, pts[0].Lat, 1e-9)
}

func TestCrossesFalseForParallelLines(t *testing.T) {
	a := []model.Coord{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}}
	b := []model.Coord{{Lon: 0, Lat: 1}, {Lon: 1, Lat: 1}}
	assert.False(t, Crosses(a, b))
}

func TestCrossesFalseForSharedEndpointOnly(t *testing.T) {
	a := []model.Coord{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}}
	b := []model.Coord{{Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}}
	assert.False(t, Crosses(a, b))
}
