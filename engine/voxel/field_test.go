package voxel

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestField(t *testing.T, i, j, k uint32, opts ...DiffusionFieldOption) DiffusionField {
	t.Helper()
	dims, err := NewDims3(i, j, k)
	require.NoError(t, err)
	f, err := NewDiffusionField(dims, opts...)
	require.NoError(t, err)
	return f
}

func TestDimsIndex(t *testing.T) {
	d, err := NewDims3(4, 3, 2)
	require.NoError(t, err)

	assert.Equal(t, 24, d.Count())
	i, ok := d.Index(1, 2, 1)
	require.True(t, ok)
	assert.Equal(t, 1+4*(2+3*1), i)

	_, ok = d.Index(4, 0, 0)
	assert.False(t, ok)
	_, ok = d.Index(0, -1, 0)
	assert.False(t, ok)

	_, err = NewDims3(0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidDims)
}

func TestBufferSelectorAlternates(t *testing.T) {
	var s BufferSelector
	assert.Equal(t, BufferA, s.Current())
	assert.True(t, s.Flag())

	s.Toggle()
	assert.Equal(t, BufferB, s.Current())
	assert.False(t, s.Flag())

	s.Toggle()
	assert.Equal(t, BufferA, s.Current())
	assert.Equal(t, BufferB, BufferA.Other())
}

func TestStepBeforeInitialize(t *testing.T) {
	f := newTestField(t, 4, 4, 4)

	assert.ErrorIs(t, f.Step(0.01), ErrNotInitialized)
	assert.Equal(t, BufferA, f.Current())
}

func TestInitializeOnce(t *testing.T) {
	f := newTestField(t, 8, 8, 8, WithSpecies(2))

	require.NoError(t, f.Initialize(42))
	assert.True(t, f.Initialized())
	assert.Equal(t, BufferA, f.Current())
	assert.ErrorIs(t, f.Initialize(42), ErrAlreadyInitialized)

	for _, v := range f.Buffer(BufferA) {
		assert.GreaterOrEqual(t, v, float32(0))
	}
	sum, ok := f.Sum(1)
	require.True(t, ok)
	assert.InDelta(t, 0.5*512, sum, 0.05*512)
}

func TestInitializeIsDeterministic(t *testing.T) {
	a := newTestField(t, 6, 6, 6)
	b := newTestField(t, 6, 6, 6)
	require.NoError(t, a.Initialize(7))
	require.NoError(t, b.Initialize(7))

	assert.Equal(t, a.Buffer(BufferA), b.Buffer(BufferA))
}

func TestEffectiveTimestepClamp(t *testing.T) {
	f := newTestField(t, 2, 2, 2)

	assert.InDelta(t, 1.0/6.0, f.EffectiveTimestep(1.0), 1e-6)
	assert.InDelta(t, 0.01, f.EffectiveTimestep(0.01), 1e-7)
	assert.Equal(t, float32(0), f.EffectiveTimestep(-1))
	assert.Equal(t, float32(0), f.EffectiveTimestep(math32.NaN()))
	assert.InDelta(t, 1.0/6.0, f.EffectiveTimestep(math32.Inf(1)), 1e-6)
}

func TestStepClampsTimestepBeforeUpdate(t *testing.T) {
	// D*dt stays under the per-voxel cap, so only the timestep clamp limits the update.
	clamped := newTestField(t, 6, 6, 6, WithBaseCoefficient(0.5))
	capped := newTestField(t, 6, 6, 6, WithBaseCoefficient(0.5))
	require.NoError(t, clamped.Initialize(11))
	require.NoError(t, capped.Initialize(11))
	seeded := append([]float32(nil), clamped.Buffer(BufferA)...)

	require.NoError(t, clamped.Step(1.0))
	require.NoError(t, capped.Step(DefaultMaxStableTimestep))

	assert.Equal(t, capped.Buffer(capped.Current()), clamped.Buffer(clamped.Current()))
	assert.NotEqual(t, seeded, clamped.Buffer(clamped.Current()))
}

func TestStepTogglesExactlyOnce(t *testing.T) {
	f := newTestField(t, 4, 4, 4)
	require.NoError(t, f.Initialize(1))

	flags := []bool{f.ReadBufferFlag()}
	for range 4 {
		require.NoError(t, f.Step(0.01))
		flags = append(flags, f.ReadBufferFlag())
	}
	assert.Equal(t, []bool{true, false, true, false, true}, flags)
}

func TestStepIntoWritesTarget(t *testing.T) {
	f := newTestField(t, 4, 4, 4)
	require.NoError(t, f.Initialize(3))
	before := f.Buffer(BufferA)

	require.NoError(t, f.StepInto(BufferB, 0.05))
	assert.Equal(t, BufferB, f.Current())
	assert.Equal(t, before, f.Buffer(BufferA))
	assert.NotEqual(t, before, f.Buffer(BufferB))
}

func TestSumNonIncreasingAndFinite(t *testing.T) {
	f := newTestField(t, 12, 10, 8, WithSpecies(2))
	require.NoError(t, f.Initialize(99))

	prev, _ := f.Sum(0)
	for range 100 {
		require.NoError(t, f.Step(1.0))
		sum, ok := f.Sum(0)
		require.True(t, ok)
		assert.LessOrEqual(t, sum, prev+1e-3)
		prev = sum
	}
	for _, v := range f.Buffer(f.Current()) {
		require.False(t, math32.IsNaN(v))
		require.False(t, math32.IsInf(v, 0))
		require.GreaterOrEqual(t, v, float32(0))
	}
}

func TestUniformFieldIsStationary(t *testing.T) {
	f := newTestField(t, 5, 5, 5)
	require.NoError(t, f.Initialize(1))
	for z := range 5 {
		for y := range 5 {
			for x := range 5 {
				f.SetValue(x, y, z, 0, 2)
			}
		}
	}

	require.NoError(t, f.Step(0.1))

	// Interior voxels of a uniform field see a zero Laplacian.
	v, ok := f.Value(2, 2, 2, 0)
	require.True(t, ok)
	assert.InDelta(t, 2, v, 1e-6)
}

func TestPointSourceSpreads(t *testing.T) {
	f := newTestField(t, 5, 5, 5)
	require.NoError(t, f.Initialize(1))
	for z := range 5 {
		for y := range 5 {
			for x := range 5 {
				f.SetValue(x, y, z, 0, 0)
			}
		}
	}
	f.SetValue(2, 2, 2, 0, 6)

	require.NoError(t, f.Step(0.1))

	centre, _ := f.Value(2, 2, 2, 0)
	neighbour, _ := f.Value(3, 2, 2, 0)
	assert.InDelta(t, 6-6*0.1*6, centre, 1e-5)
	assert.InDelta(t, 0.1*6, neighbour, 1e-5)
}

func TestOutOfRangeAccessors(t *testing.T) {
	f := newTestField(t, 3, 3, 3)

	_, ok := f.Value(3, 0, 0, 0)
	assert.False(t, ok)
	_, ok = f.Value(0, 0, 0, 1)
	assert.False(t, ok)
	assert.False(t, f.SetValue(-1, 0, 0, 0, 1))
	_, ok = f.State(0, 0, 3)
	assert.False(t, ok)
	assert.False(t, f.SetTemperature(0, 9, 0, 1))
	_, ok = f.Sum(2)
	assert.False(t, ok)
}

func TestUntouchedFieldHasUniformCoefficient(t *testing.T) {
	f := newTestField(t, 4, 3, 5, WithBaseCoefficient(0.75))
	require.NoError(t, f.Initialize(2))

	for z := range 5 {
		for y := range 3 {
			for x := range 4 {
				d, ok := f.Coefficient(x, y, z)
				require.True(t, ok)
				assert.Equal(t, float32(0.75), d)
			}
		}
	}
}

func TestCoefficientFollowsTemperatureAndState(t *testing.T) {
	f := newTestField(t, 2, 2, 2, WithBaseCoefficient(0.5), WithReferenceTemperature(300), WithInsideScale(0.25))

	d, ok := f.Coefficient(0, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 0.5, d, 1e-6)

	require.True(t, f.SetTemperature(0, 0, 0, 600))
	d, _ = f.Coefficient(0, 0, 0)
	assert.InDelta(t, 1.0, d, 1e-6)

	require.True(t, f.SetState(0, 0, 0, StateInside))
	d, _ = f.Coefficient(0, 0, 0)
	assert.InDelta(t, 0.25, d, 1e-6)

	f.SetBaseCoefficient(1)
	d, _ = f.Coefficient(0, 0, 0)
	assert.InDelta(t, 0.5, d, 1e-6)
}

func TestParallelStepMatchesSerial(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 256, 1*time.Second)
	defer pool.Stop()

	serial := newTestField(t, 10, 9, 13, WithSpecies(2))
	parallel := newTestField(t, 10, 9, 13, WithSpecies(2), WithWorkerPool(pool, 5))
	require.NoError(t, serial.Initialize(5))
	require.NoError(t, parallel.Initialize(5))

	for range 10 {
		require.NoError(t, serial.Step(0.1))
		require.NoError(t, parallel.Step(0.1))
	}
	assert.Equal(t, serial.Buffer(serial.Current()), parallel.Buffer(parallel.Current()))
}

func TestNewDiffusionFieldRejectsInvalidOptions(t *testing.T) {
	dims, err := NewDims3(2, 2, 2)
	require.NoError(t, err)

	_, err = NewDiffusionField(dims, WithSpecies(0))
	assert.Error(t, err)
	_, err = NewDiffusionField(dims, WithMaxTimestep(0))
	assert.Error(t, err)
	_, err = NewDiffusionField(dims, WithBaseCoefficient(-1))
	assert.Error(t, err)
	_, err = NewDiffusionField(Dims3{})
	assert.ErrorIs(t, err, ErrInvalidDims)
}
