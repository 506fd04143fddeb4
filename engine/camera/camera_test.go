package camera

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

func newScenarioCamera(opts ...CameraBuilderOption) Camera {
	base := []CameraBuilderOption{
		WithPosition(400, 0, 0),
		WithViewport(800, 600),
		WithScrollSensitivity(0.3),
	}
	return NewCamera(append(base, opts...)...)
}

func assertOrthonormal(t *testing.T, b Basis) {
	t.Helper()
	assert.InDelta(t, 1, b.R.Length(), tol)
	assert.InDelta(t, 1, b.U.Length(), tol)
	assert.InDelta(t, 1, b.F.Length(), tol)
	assert.InDelta(t, 0, b.R.Dot(b.U), tol)
	assert.InDelta(t, 0, b.R.Dot(b.F), tol)
	assert.InDelta(t, 0, b.U.Dot(b.F), tol)

	f, _ := b.R.Cross(b.U).Normalize()
	assert.InDelta(t, 0, f.Sub(b.F).Length(), tol)
}

func TestNewCameraLooksAtOrigin(t *testing.T) {
	c := newScenarioCamera()

	b := c.Basis()
	assert.InDelta(t, -1, b.F[0], tol)
	assert.InDelta(t, 0, b.F[1], tol)
	assert.InDelta(t, 0, b.F[2], tol)
	assert.InDelta(t, 1, b.R.Length(), tol)
	assert.InDelta(t, 1, b.U.Length(), tol)
	assert.InDelta(t, 1, b.U[1], tol)
	assertOrthonormal(t, b)
}

func TestZoomScenario(t *testing.T) {
	c := newScenarioCamera()

	c.Zoom(-10)

	assert.InDelta(t, 397, c.Radius(), 1e-3)
	p := c.Position()
	assert.InDelta(t, 397, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], tol)
	assert.InDelta(t, 0, p[2], tol)
}

func TestZoomClampsRadius(t *testing.T) {
	c := newScenarioCamera()
	rng := rand.New(rand.NewPCG(1, 2))

	lo, hi := c.RadiusBounds()
	for range 2000 {
		c.Zoom(float32(rng.NormFloat64() * 500))
		r := c.Radius()
		require.GreaterOrEqual(t, r, lo-tol)
		require.LessOrEqual(t, r, hi+tol)
	}

	c.Zoom(-1e6)
	assert.InDelta(t, lo, c.Radius(), tol)
	c.Zoom(1e6)
	assert.InDelta(t, hi, c.Radius(), 1e-2)
}

func TestOrthonormalityUnderRandomOperations(t *testing.T) {
	c := newScenarioCamera()
	rng := rand.New(rand.NewPCG(7, 11))

	lo, hi := c.RadiusBounds()
	for i := range 10000 {
		switch rng.IntN(3) {
		case 0:
			c.Rotate(float32(rng.Float64()*400-200), float32(rng.Float64()*400-200))
		case 1:
			c.Zoom(float32(rng.Float64()*40 - 20))
		case 2:
			c.Pan(float32(rng.Float64()*20-10), float32(rng.Float64()*20-10))
		}
		c.Orthonormalize()

		b := c.Basis()
		if !assert.InDelta(t, 0, b.R.Dot(b.U), tol, "step %d", i) {
			return
		}
		assert.InDelta(t, 0, b.R.Dot(b.F), tol)
		assert.InDelta(t, 0, b.U.Dot(b.F), tol)
		assert.InDelta(t, 1, b.R.Length(), tol)
		assert.InDelta(t, 1, b.U.Length(), tol)
		assert.InDelta(t, 1, b.F.Length(), tol)

		r := c.Radius()
		assert.GreaterOrEqual(t, r, lo-1e-3)
		assert.LessOrEqual(t, r, hi+1e-2)
	}
}

func TestRotateOrbitsOrigin(t *testing.T) {
	c := newScenarioCamera()

	c.Rotate(100, 40)

	b := c.Basis()
	assertOrthonormal(t, b)
	p := c.Position()
	assert.InDelta(t, 400, p.Length(), 1e-2)

	toOrigin, _ := p.Scale(-1).Normalize()
	assert.InDelta(t, 0, toOrigin.Sub(b.F).Length(), 1e-3)
	assert.InDelta(t, 0, c.Centre().Sub(p.Add(b.F.Scale(c.FocalScale()))).Length(), 1e-2)
}

func TestRotateIgnoresNonFinite(t *testing.T) {
	c := newScenarioCamera()
	before := c.Basis()

	c.Rotate(math32.NaN(), 1)
	c.Zoom(math32.Inf(1))

	assert.Equal(t, before, c.Basis())
	assert.InDelta(t, 400, c.Radius(), tol)
}

func TestPanKeepsRadius(t *testing.T) {
	c := newScenarioCamera()

	c.Pan(30, -12)

	assert.InDelta(t, 400, c.Radius(), 1e-2)
	b := c.Basis()
	assertOrthonormal(t, b)
	toOrigin, _ := c.Position().Scale(-1).Normalize()
	assert.InDelta(t, 0, toOrigin.Sub(b.F).Length(), 1e-3)
}

func TestPanHugeDeltaKeepsRadius(t *testing.T) {
	c := newScenarioCamera()

	c.Pan(3e38, 0)

	assert.True(t, c.Position().IsFinite())
	assert.InDelta(t, 400, c.Radius(), 1e-2)
	assertOrthonormal(t, c.Basis())
}

func TestPanNearPoleStaysStable(t *testing.T) {
	c := NewCamera(WithPosition(0.5, 400, 0), WithViewport(800, 600))

	for range 200 {
		c.Pan(0.1, 0.5)
		assertOrthonormal(t, c.Basis())
	}
	assert.True(t, c.Position().IsFinite())
}

func TestWorldToCameraSpace(t *testing.T) {
	c := newScenarioCamera()

	origin := c.WorldToCameraSpace(common.Vec3{})
	assert.InDelta(t, 0, origin[0], tol)
	assert.InDelta(t, 0, origin[1], tol)
	assert.InDelta(t, 400, origin[2], tol)

	behind := c.WorldToCameraSpace(common.Vec3{500, 0, 0})
	assert.Less(t, behind[2], float32(0))
}

func TestCameraSpaceToScreenPlane(t *testing.T) {
	c := newScenarioCamera()
	rightScale := float32(400) / 300

	x, y, ok := c.CameraSpaceToScreenPlane(c.WorldToCameraSpace(common.Vec3{}), rightScale)
	require.True(t, ok)
	assert.InDelta(t, 0, x, tol)
	assert.InDelta(t, 0, y, tol)

	// A point on the edge of the vertical field of view lands on y = 1.
	halfFov := float32(45.0*3.14159265/180.0) / 2
	p := common.Vec3{0, math32.Tan(halfFov) * 100, 100}
	_, y, ok = c.CameraSpaceToScreenPlane(p, rightScale)
	require.True(t, ok)
	assert.InDelta(t, 1, y, 1e-3)

	_, _, ok = c.CameraSpaceToScreenPlane(common.Vec3{1, 1, -5}, rightScale)
	assert.False(t, ok)
	_, _, ok = c.CameraSpaceToScreenPlane(common.Vec3{}, rightScale)
	assert.False(t, ok)
}

func TestResize(t *testing.T) {
	c := newScenarioCamera()
	focal := c.FocalScale()

	c.Resize(1600, 1200)
	assert.InDelta(t, focal*2, c.FocalScale(), 1e-2)
	w, h := c.Viewport()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)

	c.Resize(0, -4)
	w, h = c.Viewport()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
}

func TestApplyDispatchesCommands(t *testing.T) {
	c := newScenarioCamera()

	c.Apply(Zoom{Delta: -10})
	assert.InDelta(t, 397, c.Radius(), 1e-3)

	c.Apply(Resize{Width: 1024, Height: 768})
	w, h := c.Viewport()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)

	c.Apply(Rotate{DYaw: 50})
	assert.NotEqual(t, float32(397), c.Position()[0])

	c.Apply(Reset{})
	p := c.Position()
	assert.InDelta(t, 400, p[0], tol)
	assert.InDelta(t, -1, c.Basis().F[0], tol)
}

func TestSetSensitivityKeepsZeroFields(t *testing.T) {
	c := newScenarioCamera()

	c.SetSensitivity(1.0, 0, 0, 0)
	c.Zoom(-10)
	assert.InDelta(t, 390, c.Radius(), 1e-3)
}

func TestNewCameraPanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { NewCamera(WithPosition(0, 0, 0)) })
	assert.Panics(t, func() { NewCamera(WithRadiusBounds(10, 1)) })
	assert.Panics(t, func() { NewCamera(WithViewport(0, 600)) })
}

func TestGPUCameraBlockLayout(t *testing.T) {
	c := newScenarioCamera()
	block := c.GPUBlock()

	assert.Equal(t, 80, block.Size())
	buf := block.Marshal()
	require.Len(t, buf, 80)

	// cam_pos.x at offset 0 and forward.x at offset 16.
	assert.Equal(t, []byte{0x00, 0x00, 0xc8, 0x43}, buf[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xbf}, buf[16:20])
}
