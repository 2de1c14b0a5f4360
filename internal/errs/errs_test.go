package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageShapes(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "geom: length failed (t1): boom", Geom("t1", "length failed", cause).Error())
	assert.Equal(t, "geom: length failed (t1)", Geom("t1", "length failed", nil).Error())
	assert.Equal(t, "tolerance: tau out of range: boom", Tolerance("tau out of range", cause).Error())
	assert.Equal(t, "tolerance: tau out of range", Tolerance("tau out of range", nil).Error())
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Resource("ws1", "destroy failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesKind(t *testing.T) {
	err := Invariant("edge:3", "self-loop", nil)
	assert.True(t, Is(err, KindInvariant))
	assert.False(t, Is(err, KindGeom))
	assert.False(t, Is(errors.New("plain"), KindInvariant))
}

func TestReportAccumulates(t *testing.T) {
	r := NewReport()
	assert.False(t, r.HasErrors())

	r.Add(Input("t1", "empty geometry", nil))
	r.Add(Input("t2", "missing attribute", nil))
	r.Add(Geom("t3", "degenerate", nil))

	require.True(t, r.HasErrors())
	require.Len(t, r.Errors, 3)

	counts := r.CountByKind()
	assert.Equal(t, 2, counts[KindInput])
	assert.Equal(t, 1, counts[KindGeom])
}
