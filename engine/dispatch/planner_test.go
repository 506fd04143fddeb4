package dispatch

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/common"
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

func TestDiffusionGroupsFor200Cube(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 200, 200, 200))
	require.NoError(t, err)

	assert.Equal(t, [3]uint32{25, 50, 25}, p.DiffusionGroups())
}

func TestDiffusionGroupsRoundUp(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 9, 5, 1))
	require.NoError(t, err)

	assert.Equal(t, [3]uint32{2, 2, 1}, p.DiffusionGroups())

	require.NoError(t, p.Resize(mustDims(t, 16, 4, 17)))
	assert.Equal(t, [3]uint32{2, 1, 3}, p.DiffusionGroups())
	assert.Error(t, p.Resize(voxel.Dims3{}))
	assert.Equal(t, [3]uint32{2, 1, 3}, p.DiffusionGroups())
}

func TestPlanRaymarchGroups(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 200, 200, 200), WithSeed(9))
	require.NoError(t, err)

	plan := p.Plan(common.BoundingBox{MinX: -100, MinY: -50, MaxX: 101, MaxY: 50})
	assert.False(t, plan.Skip)
	assert.Equal(t, [3]uint32{13, 7, 1}, plan.RaymarchGroups)
	assert.Equal(t, [3]uint32{25, 50, 25}, plan.DiffusionGroups)
	assert.Equal(t, uint32(9), plan.Seed)
}

func TestPlanSkipsEmptyBox(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 8, 8, 8))
	require.NoError(t, err)

	for _, box := range []common.BoundingBox{
		{},
		{MinX: -10, MinY: 5, MaxX: 10, MaxY: 5},
		{MinX: 3, MinY: -4, MaxX: 3, MaxY: 4},
	} {
		plan := p.Plan(box)
		assert.True(t, plan.Skip, "box %+v", box)
		assert.Equal(t, [3]uint32{}, plan.RaymarchGroups)
	}
}

func TestSeedIsStable(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 8, 8, 8))
	require.NoError(t, err)

	seed := p.Seed()
	for range 5 {
		assert.Equal(t, seed, p.Plan(common.FullViewport(10, 10)).Seed)
	}
}

func TestNewPlannerRejectsOversizedGroups(t *testing.T) {
	dims := mustDims(t, 8, 8, 8)

	_, err := NewPlanner(dims, WithDiffusionGroupSize(8, 8, 8))
	assert.ErrorIs(t, err, ErrGroupSize)
	_, err = NewPlanner(dims, WithDiffusionGroupSize(0, 4, 8))
	assert.ErrorIs(t, err, ErrGroupSize)
	_, err = NewPlanner(dims, WithRaymarchGroupSize(32, 16))
	assert.ErrorIs(t, err, ErrGroupSize)
	_, err = NewPlanner(voxel.Dims3{I: 1})
	assert.ErrorIs(t, err, voxel.ErrInvalidDims)
}

func TestCheckWorkgroupSize(t *testing.T) {
	p, err := NewPlanner(mustDims(t, 8, 8, 8))
	require.NoError(t, err)

	assert.NoError(t, p.CheckWorkgroupSize("diffusion", [3]uint32{8, 4, 8}))
	assert.NoError(t, p.CheckWorkgroupSize("raymarch", [3]uint32{16, 16, 1}))
	assert.ErrorIs(t, p.CheckWorkgroupSize("diffusion", [3]uint32{4, 4, 4}), ErrGroupSize)
	assert.ErrorIs(t, p.CheckWorkgroupSize("present", [3]uint32{1, 1, 1}), ErrGroupSize)
}
