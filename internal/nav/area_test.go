package nav

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundctl/autodrive/pkg/core"
)

func squareArea(t *testing.T) *Area {
	t.Helper()
	a, err := NewArea([]core.Position3D{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 100, Y: 100},
		{X: 0, Y: 100},
	})
	require.NoError(t, err)
	return a
}

func TestNewArea_TooFewVertices(t *testing.T) {
	_, err := NewArea([]core.Position3D{{X: 0}, {X: 1}})
	assert.Error(t, err)
}

func TestNewArea_SelfIntersectingRing(t *testing.T) {
	// Bowtie polygon.
	_, err := NewArea([]core.Position3D{
		{X: 0, Y: 0},
		{X: 100, Y: 100},
		{X: 100, Y: 0},
		{X: 0, Y: 100},
	})
	assert.Error(t, err)
}

func TestArea_Contains(t *testing.T) {
	a := squareArea(t)

	assert.True(t, a.Contains(core.Position3D{X: 50, Y: 50}))
	assert.True(t, a.Contains(core.Position3D{X: 0, Y: 0}), "boundary counts as inside")
	assert.False(t, a.Contains(core.Position3D{X: 150, Y: 50}))
}

func TestArea_NearestPoint_InsideUnchanged(t *testing.T) {
	a := squareArea(t)

	p := core.Position3D{X: 30, Y: 40, Z: 2}
	got, ok := a.NearestPoint(p, 10)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestArea_NearestPoint_SnapsToBoundary(t *testing.T) {
	a := squareArea(t)

	got, ok := a.NearestPoint(core.Position3D{X: 105, Y: 50, Z: 1}, 10)
	require.True(t, ok)
	assert.InDelta(t, 100, got.X, 1e-9)
	assert.InDelta(t, 50, got.Y, 1e-9)
	assert.Equal(t, 1.0, got.Z, "elevation passes through")
}

func TestArea_NearestPoint_SnapsToCorner(t *testing.T) {
	a := squareArea(t)

	got, ok := a.NearestPoint(core.Position3D{X: 110, Y: 110}, 20)
	require.True(t, ok)
	assert.InDelta(t, 100, got.X, 1e-9)
	assert.InDelta(t, 100, got.Y, 1e-9)
}

func TestArea_NearestPoint_TooFar(t *testing.T) {
	a := squareArea(t)

	_, ok := a.NearestPoint(core.Position3D{X: 200, Y: 50}, 10)
	assert.False(t, ok)
}

func TestArea_NearestPoint_ExactDistanceBound(t *testing.T) {
	a := squareArea(t)

	// 10m east of the boundary with maxDist exactly 10 still snaps.
	got, ok := a.NearestPoint(core.Position3D{X: 110, Y: 50}, 10)
	require.True(t, ok)
	assert.True(t, math.Abs(got.X-100) < 1e-9)
}
