package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestVec3CrossRightHanded(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	assert.Equal(t, Vec3{0, 0, 1}, x.Cross(y))
	assert.Equal(t, Vec3{0, 0, -1}, y.Cross(x))
}

func TestVec3NormalizeDegenerate(t *testing.T) {
	n, ok := Vec3{3, 0, 4}.Normalize()
	assert.True(t, ok)
	assert.InDelta(t, 1.0, float64(n.Length()), 1e-6)
	assert.InDelta(t, 0.6, float64(n[0]), 1e-6)

	z, ok := Vec3{}.Normalize()
	assert.False(t, ok)
	assert.Equal(t, Vec3{}, z)
}

func TestVec3NormalizeOverflow(t *testing.T) {
	n, ok := Vec3{-3e38, 0, 3e38}.Normalize()
	assert.True(t, ok)
	assert.True(t, n.IsFinite())
	assert.InDelta(t, 1.0, float64(n.Length()), 1e-6)
	assert.InDelta(t, -0.70710678, float64(n[0]), 1e-6)

	inf := Vec3{math32.Inf(1), 0, 0}
	v, ok := inf.Normalize()
	assert.False(t, ok)
	assert.Equal(t, inf, v)
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(25), CeilDiv(200, 8))
	assert.Equal(t, uint32(50), CeilDiv(200, 4))
	assert.Equal(t, uint32(1), CeilDiv(1, 16))
	assert.Equal(t, uint32(0), CeilDiv(0, 16))
	assert.Equal(t, uint32(0), CeilDiv(5, 0))
}

func TestBoundingBox(t *testing.T) {
	var empty BoundingBox
	assert.True(t, empty.Empty())

	b := BoundingBox{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}
	assert.Equal(t, uint32(20), b.Width())
	assert.Equal(t, uint32(10), b.Height())
	assert.True(t, b.Within(10, 5))
	assert.False(t, b.Within(9, 5))

	inverted := BoundingBox{MinX: 4, MaxX: 2, MinY: 0, MaxY: 3}
	assert.True(t, inverted.Empty())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(float32(-3), 1, 500))
	assert.Equal(t, float32(500), Clamp(float32(900), 1, 500))
	assert.Equal(t, int32(7), Clamp(int32(7), -10, 10))
}
