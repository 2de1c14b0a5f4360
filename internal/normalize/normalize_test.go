package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailnet/internal/config"
	"trailnet/internal/errs"
	"trailnet/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		IntersectionToleranceM:  3.0,
		MinSegmentLengthM:       1.0,
		GridCellDeg:             1e-6,
		DedupToleranceFrac:      0.01,
		SplitRatioEpsilon:       0.001,
		MaxDegree2Iterations:    10,
		SimplifyVertexThreshold: 10,
		StrictValidation:        true,
		StageTimeoutS:           30,
	}
}

func TestNormalizeDropsShortTrail(t *testing.T) {
	cfg := testConfig()
	cfg.MinSegmentLengthM = 1_000_000
	trail := model.Trail{
		SourceID: "t1",
		Geometry: []model.Coord{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.0001}},
	}
	res, err := Normalize(cfg, trail)
	require.NoError(t, err)
	assert.True(t, res.Dropped)
}

func TestNormalizeCollapsesDuplicateVertices(t *testing.T) {
	cfg := testConfig()
	trail := model.Trail{
		SourceID: "t2",
		Geometry: []model.Coord{
			{Lon: 0, Lat: 0},
			{Lon: 0.0000001, Lat: 0.0000001}, // within grid cell of the first vertex
			{Lon: 0, Lat: 1},
		},
	}
	res, err := Normalize(cfg, trail)
	require.NoError(t, err)
	require.False(t, res.Dropped)
	assert.Len(t, res.Trail.Geometry, 2)
}

func TestNormalizeRejectsNaNCoordinate(t *testing.T) {
	cfg := testConfig()
	trail := model.Trail{
		SourceID: "t6",
		Geometry: []model.Coord{{Lon: 0, Lat: 0}, {Lon: math.NaN(), Lat: 0.5}, {Lon: 0, Lat: 1}},
	}
	_, err := Normalize(cfg, trail)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindGeom))
}

func TestNormalizeRejectsTooFewPoints(t *testing.T) {
	cfg := testConfig()
	trail := model.Trail{SourceID: "t3", Geometry: []model.Coord{{Lon: 0, Lat: 0}}}
	_, err := Normalize(cfg, trail)
	assert.Error(t, err)
}

func TestNormalizeRecomputesDerivedFields(t *testing.T) {
	cfg := testConfig()
	trail := model.Trail{
		SourceID: "t4",
		Geometry: []model.Coord{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}, {Lon: 0, Lat: 2}},
	}
	res, err := Normalize(cfg, trail)
	require.NoError(t, err)
	require.False(t, res.Dropped)
	assert.Equal(t, res.Trail.Geometry[0], res.Trail.Start)
	assert.Equal(t, res.Trail.Geometry[len(res.Trail.Geometry)-1], res.Trail.End)
	assert.Greater(t, res.Trail.LengthM, 0.0)
}

// TestNormalizeIdempotent: running normalization over its own output
// yields identical geometry, coordinate for coordinate.
func TestNormalizeIdempotent(t *testing.T) {
	cfg := testConfig()
	trail := model.Trail{
		SourceID: "t5",
		Geometry: []model.Coord{
			{Lon: 0, Lat: 0, Elev: 100},
			{Lon: 0.0000001, Lat: 0.0000001, Elev: 101}, // collapses on first pass
			{Lon: 0.001, Lat: 0.001, Elev: 120},
			{Lon: 0.002, Lat: 0.0021, Elev: 140},
			{Lon: 0.003, Lat: 0.003, Elev: 150},
			{Lon: 0.004, Lat: 0.0039, Elev: 160},
			{Lon: 0.005, Lat: 0.005, Elev: 170},
			{Lon: 0.006, Lat: 0.0062, Elev: 180},
			{Lon: 0.007, Lat: 0.007, Elev: 190},
			{Lon: 0.008, Lat: 0.008, Elev: 200},
			{Lon: 0.009, Lat: 0.009, Elev: 210},
		},
	}

	once, err := Normalize(cfg, trail)
	require.NoError(t, err)
	require.False(t, once.Dropped)

	twice, err := Normalize(cfg, once.Trail)
	require.NoError(t, err)
	require.False(t, twice.Dropped)

	assert.Equal(t, once.Trail.Geometry, twice.Trail.Geometry)
	assert.Equal(t, once.Trail.LengthM, twice.Trail.LengthM)
	assert.Equal(t, once.Trail.BBox, twice.Trail.BBox)
}

func TestRepairCoordsCollapsesDuplicateAtCut(t *testing.T) {
	cfg := testConfig()
	coords := []model.Coord{
		{Lon: 1, Lat: 1},
		{Lon: 1.0000001, Lat: 1.0000001},
		{Lon: 2, Lat: 2},
	}
	out := RepairCoords(cfg, coords)
	assert.Len(t, out, 2)
}
