package projector

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDims(t *testing.T, i, j, k uint32) voxel.Dims3 {
	t.Helper()
	d, err := voxel.NewDims3(i, j, k)
	require.NoError(t, err)
	return d
}

// fixedView projects every corner to the same result.
type fixedView struct {
	x, y  float32
	ok    []bool
	calls int
	halfW float32
	halfH float32
}

func (v *fixedView) WorldToCameraSpace(p common.Vec3) common.Vec3 { return p }

func (v *fixedView) CameraSpaceToScreenPlane(common.Vec3, float32) (float32, float32, bool) {
	ok := v.ok[v.calls%len(v.ok)]
	v.calls++
	return v.x, v.y, ok
}

func (v *fixedView) HalfExtents() (float32, float32) { return v.halfW, v.halfH }

func TestCornersSpanHalfExtents(t *testing.T) {
	p := NewProjector(mustDims(t, 200, 100, 50))

	corners := p.Corners()
	seen := map[common.Vec3]bool{}
	for _, c := range corners {
		assert.InDelta(t, 100, abs(c[0]), 1e-6)
		assert.InDelta(t, 50, abs(c[1]), 1e-6)
		assert.InDelta(t, 25, abs(c[2]), 1e-6)
		seen[c] = true
	}
	assert.Len(t, seen, 8)

	p.Resize(mustDims(t, 2, 2, 2))
	assert.Equal(t, common.Vec3{-1, -1, -1}, p.Corners()[0])
	assert.Equal(t, common.Vec3{1, 1, 1}, p.Corners()[7])
}

func TestProjectScenarioIsCentredAndContained(t *testing.T) {
	p := NewProjector(mustDims(t, 200, 200, 200))
	c := camera.NewCamera(camera.WithPosition(400, 0, 0), camera.WithViewport(800, 600))

	box := p.Project(c)

	assert.False(t, box.Empty())
	assert.True(t, box.Within(400, 300))
	assert.Equal(t, -box.MinX, box.MaxX)
	assert.Equal(t, -box.MinY, box.MaxY)
	assert.Less(t, box.MaxY, int32(300))
}

func TestProjectContainmentUnderRandomCameras(t *testing.T) {
	p := NewProjector(mustDims(t, 200, 200, 200))
	c := camera.NewCamera(camera.WithPosition(400, 0, 0), camera.WithViewport(800, 600))
	rng := rand.New(rand.NewPCG(3, 5))

	for i := range 2000 {
		switch rng.IntN(4) {
		case 0:
			c.Rotate(float32(rng.Float64()*600-300), float32(rng.Float64()*600-300))
		case 1:
			c.Zoom(float32(rng.Float64()*400 - 200))
		case 2:
			c.Pan(float32(rng.Float64()*40-20), float32(rng.Float64()*40-20))
		case 3:
			c.Resize(200+rng.IntN(1800), 200+rng.IntN(1200))
		}

		halfW, halfH := c.HalfExtents()
		box := p.Project(c)
		require.True(t, box.Within(int32(halfW), int32(halfH)), "step %d: %+v", i, box)
	}
}

func TestProjectAllCornersBehindIsEmpty(t *testing.T) {
	p := NewProjector(mustDims(t, 8, 8, 8))
	v := &fixedView{ok: []bool{false}, halfW: 400, halfH: 300}

	box := p.Project(v)

	assert.True(t, box.Empty())
	assert.Equal(t, 8, v.calls)
}

func TestProjectStraddlingIsFullViewport(t *testing.T) {
	p := NewProjector(mustDims(t, 8, 8, 8))
	v := &fixedView{ok: []bool{true, false}, halfW: 400, halfH: 300}

	assert.Equal(t, common.FullViewport(400, 300), p.Project(v))
}

func TestProjectSinglePointIsPadded(t *testing.T) {
	p := NewProjector(mustDims(t, 8, 8, 8))
	v := &fixedView{x: 0.1, y: -0.5, ok: []bool{true}, halfW: 400, halfH: 300}

	box := p.Project(v)

	assert.Equal(t, common.BoundingBox{MinX: 39, MinY: -151, MaxX: 41, MaxY: -149}, box)
}

func TestProjectClampsToViewport(t *testing.T) {
	p := NewProjector(mustDims(t, 8, 8, 8))
	v := &fixedView{x: 5, y: -7, ok: []bool{true}, halfW: 400, halfH: 300}

	box := p.Project(v)

	assert.True(t, box.Within(400, 300))
	assert.Equal(t, int32(400), box.MaxX)
	assert.Equal(t, int32(-300), box.MinY)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
