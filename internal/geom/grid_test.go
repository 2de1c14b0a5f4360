package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trailnet/internal/model"
)

func TestSnapToGridCollapsesNearDuplicates(t *testing.T) {
	coords := []model.Coord{
		{Lon: 1.0000001, Lat: 2.0000001},
		{Lon: 1.0000002, Lat: 2.0000002},
		{Lon: 5.0, Lat: 6.0},
	}
	out := SnapToGrid(coords, 1e-3)
	assert.Len(t, out, 2)
}

func TestSameCell(t *testing.T) {
	a := model.Coord{Lon: 1.00000001, Lat: 2.00000001}
	b := model.Coord{Lon: 1.00000002, Lat: 2.00000002}
	assert.True(t, SameCell(a, b, 1e-6))

	c := model.Coord{Lon: 1.1, Lat: 2.1}
	assert.False(t, SameCell(a, c, 1e-6))
}

func TestCellKeyStableUnderRounding(t *testing.T) {
	a := model.Coord{Lon: 10.0000004, Lat: -5.0000004}
	b := model.Coord{Lon: 10.0000001, Lat: -5.0000001}
	assert.Equal(t, CellKey(a, 1e-6), CellKey(b, 1e-6))
}
