package simulation

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/projector"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	stage   Stage
	current voxel.BufferIndex
}

type fakeStage struct {
	calls       []call
	initErr     []error
	diffuseErr  []error
	raymarchErr error
}

func (f *fakeStage) Initialize(p FrameParams) error {
	f.calls = append(f.calls, call{StageInit, p.Current})
	return pop(&f.initErr)
}

func (f *fakeStage) Diffuse(p FrameParams) error {
	f.calls = append(f.calls, call{StageDiffuse, p.Current})
	return pop(&f.diffuseErr)
}

func (f *fakeStage) Raymarch(p FrameParams) error {
	f.calls = append(f.calls, call{StageRaymarch, p.Current})
	return f.raymarchErr
}

type fakePresenter struct {
	frames []uint64
	err    error
}

func (f *fakePresenter) Present(p FrameParams) error {
	f.frames = append(f.frames, p.Frame)
	return f.err
}

// emptyProjector reports an off-screen grid.
type emptyProjector struct{ projector.Projector }

func (emptyProjector) Project(projector.View) common.BoundingBox { return common.BoundingBox{} }

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func newTestSimulation(t *testing.T, stage ComputeStage, opts ...SimulationBuilderOption) Simulation {
	t.Helper()
	dims, err := voxel.NewDims3(200, 200, 200)
	require.NoError(t, err)
	cam := camera.NewCamera(camera.WithPosition(400, 0, 0), camera.WithViewport(800, 600))
	base := []SimulationBuilderOption{WithPlannerOptions(dispatch.WithSeed(1234))}
	s, err := NewSimulation(cam, dims, stage, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func TestFrameBufferFlagSequence(t *testing.T) {
	stage := &fakeStage{}
	s := newTestSimulation(t, stage)

	var flags []bool
	for range 5 {
		report, err := s.Frame(1.0 / 60)
		require.NoError(t, err)
		flags = append(flags, report.ReadBufferFlag)
	}

	assert.Equal(t, []bool{true, false, true, false, true}, flags)
	assert.Equal(t, StateSteady, s.State())
	assert.Equal(t, []call{
		{StageInit, voxel.BufferA}, {StageRaymarch, voxel.BufferA},
		{StageDiffuse, voxel.BufferB}, {StageRaymarch, voxel.BufferB},
		{StageDiffuse, voxel.BufferA}, {StageRaymarch, voxel.BufferA},
		{StageDiffuse, voxel.BufferB}, {StageRaymarch, voxel.BufferB},
		{StageDiffuse, voxel.BufferA}, {StageRaymarch, voxel.BufferA},
	}, stage.calls)
}

func TestFrameClampsTimestep(t *testing.T) {
	s := newTestSimulation(t, &fakeStage{})

	report, err := s.Frame(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.1667, report.Timestep, 1e-4)

	report, err = s.Frame(-3)
	require.NoError(t, err)
	assert.Equal(t, float32(0), report.Timestep)
	assert.InDelta(t, 0.1667, s.Time(), 1e-4)

	require.NoError(t, s.SetMaxTimestep(0.01))
	report, err = s.Frame(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, report.Timestep, 1e-6)
	assert.Error(t, s.SetMaxTimestep(0))
}

func TestFrameDiffuseFailureRollsBack(t *testing.T) {
	boom := errors.New("queue submit failed")
	stage := &fakeStage{diffuseErr: []error{nil, boom}}
	s := newTestSimulation(t, stage)

	_, err := s.Frame(0.01)
	require.NoError(t, err)
	_, err = s.Frame(0.01)
	require.NoError(t, err)
	goodBox := s.LastBox()
	require.Equal(t, voxel.BufferB, s.Current())

	s.Apply(camera.Zoom{Delta: 100})
	report, err := s.Frame(0.01)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDiffuse, stageErr.Stage)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, voxel.BufferB, s.Current())
	assert.False(t, report.ReadBufferFlag)
	assert.Equal(t, goodBox, s.LastBox())

	report, err = s.Frame(0.01)
	require.NoError(t, err)
	assert.True(t, report.ReadBufferFlag)
	assert.NotEqual(t, goodBox, s.LastBox())
}

func TestFrameInitFailureRetries(t *testing.T) {
	stage := &fakeStage{initErr: []error{errors.New("device lost")}}
	s := newTestSimulation(t, stage)

	_, err := s.Frame(0.01)
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, voxel.BufferA, s.Current())

	report, err := s.Frame(0.01)
	require.NoError(t, err)
	assert.Equal(t, StateSteady, report.State)
	assert.True(t, report.ReadBufferFlag)
	assert.Equal(t, []call{
		{StageInit, voxel.BufferA},
		{StageInit, voxel.BufferA}, {StageRaymarch, voxel.BufferA},
	}, stage.calls)
}

func TestFrameSkipsRaymarchForEmptyBox(t *testing.T) {
	stage := &fakeStage{}
	presenter := &fakePresenter{}
	s := newTestSimulation(t, stage, WithProjector(emptyProjector{}), WithPresenter(presenter))

	report, err := s.Frame(0.01)
	require.NoError(t, err)

	assert.True(t, report.Plan.Skip)
	assert.Equal(t, [3]uint32{}, report.Plan.RaymarchGroups)
	assert.Equal(t, []call{{StageInit, voxel.BufferA}}, stage.calls)
	assert.Equal(t, []uint64{1}, presenter.frames)
}

func TestFramePresentFailureIsRecoverable(t *testing.T) {
	presenter := &fakePresenter{err: ErrSurfaceOutdated}
	s := newTestSimulation(t, &fakeStage{}, WithPresenter(presenter))

	report, err := s.Frame(0.01)
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, StateSteady, report.State)
	assert.False(t, s.LastBox().Empty())

	presenter.err = nil
	report, err = s.Frame(0.01)
	require.NoError(t, err)
	assert.False(t, report.ReadBufferFlag)
}

func TestFrameRaymarchFailureKeepsLastBox(t *testing.T) {
	stage := &fakeStage{raymarchErr: errors.New("encoder invalid")}
	s := newTestSimulation(t, stage)

	_, err := s.Frame(0.01)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRaymarch, stageErr.Stage)
	assert.True(t, s.LastBox().Empty())
	assert.Equal(t, StateSteady, s.State())
}

func TestNewSimulationValidates(t *testing.T) {
	dims, err := voxel.NewDims3(4, 4, 4)
	require.NoError(t, err)
	cam := camera.NewCamera()

	_, err = NewSimulation(cam, dims, nil)
	assert.ErrorIs(t, err, ErrNoStage)
	_, err = NewSimulation(cam, voxel.Dims3{}, &fakeStage{})
	assert.ErrorIs(t, err, voxel.ErrInvalidDims)
	_, err = NewSimulation(cam, dims, &fakeStage{}, WithMaxTimestep(-1))
	assert.Error(t, err)
	_, err = NewSimulation(cam, dims, &fakeStage{}, WithPlannerOptions(dispatch.WithDiffusionGroupSize(16, 16, 16)))
	assert.ErrorIs(t, err, dispatch.ErrGroupSize)
}

func TestFrameUniformLayout(t *testing.T) {
	s := newTestSimulation(t, &fakeStage{}, WithBaseCoefficient(0.5), WithSpecies(2))
	_, err := s.Frame(0.01)
	require.NoError(t, err)

	u := s.Uniform()
	assert.Equal(t, 176, u.Size())
	buf := u.Marshal()
	require.Len(t, buf, 176)

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }
	f32 := func(off int) float32 { return math.Float32frombits(u32(off)) }

	assert.Equal(t, uint32(400), u32(0))
	assert.Equal(t, uint32(300), u32(4))
	assert.Equal(t, uint32(200), u32(16))
	assert.Equal(t, uint32(40000), u32(28))
	assert.Equal(t, s.LastBox().MinX, int32(u32(32)))
	assert.Equal(t, s.LastBox().MaxY, int32(u32(44)))
	assert.Equal(t, float32(400), f32(48))
	assert.Equal(t, float32(-1), f32(64))
	assert.InDelta(t, 0.01, f32(128), 1e-7)
	assert.Equal(t, float32(0.5), f32(136))
	assert.Equal(t, float32(300), f32(140))
	assert.Equal(t, uint32(1234), u32(144))
	assert.Equal(t, uint32(2), u32(148))
	assert.Equal(t, uint32(1), u32(160))
	assert.Equal(t, uint32(1), u32(164))

	_, err = s.Frame(0.01)
	require.NoError(t, err)
	next := s.Uniform()
	buf = next.Marshal()
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[160:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[164:]))
}

func TestFrameUniformSource(t *testing.T) {
	src := FrameUniformSource()

	assert.Contains(t, src, "struct FrameUniform")
	assert.Contains(t, src, "cam_pos: vec4<f32>")
	assert.NotContains(t, src, "#camera_block")
	assert.Less(t, strings.Index(src, "bounding_box"), strings.Index(src, "cam_pos"))
	assert.Less(t, strings.Index(src, "right"), strings.Index(src, "timestep"))
}

func TestCPUStageEndToEnd(t *testing.T) {
	dims, err := voxel.NewDims3(16, 16, 16)
	require.NoError(t, err)
	field, err := voxel.NewDiffusionField(dims)
	require.NoError(t, err)
	stage := NewCPUStage(field, WithConcurrency(2))
	cam := camera.NewCamera(camera.WithPosition(40, 0, 0), camera.WithViewport(64, 48))

	dir := t.TempDir()
	presenter, err := NewSnapshotPresenter(dir, stage.Image, WithEvery(2), WithScale(0.5))
	require.NoError(t, err)

	s, err := NewSimulation(cam, dims, stage, WithPresenter(presenter), WithPlannerOptions(dispatch.WithSeed(3)))
	require.NoError(t, err)

	for range 4 {
		_, err := s.Frame(0.05)
		require.NoError(t, err)
	}

	assert.Equal(t, s.Current(), field.Current())
	assert.Equal(t, voxel.BufferB, field.Current())

	img := stage.Image()
	require.NotNil(t, img)
	assert.Equal(t, 64, img.Rect.Dx())
	assert.Equal(t, 48, img.Rect.Dy())
	centre := img.RGBAAt(32, 24)
	assert.NotEqual(t, background, centre)
	assert.Equal(t, background, img.RGBAAt(0, 0))

	written := presenter.Written()
	require.Len(t, written, 2)
	for _, name := range written {
		info, err := os.Stat(name)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

// toggledProjector reports an off-screen grid while hidden is set.
type toggledProjector struct {
	projector.Projector
	hidden bool
}

func (p *toggledProjector) Project(view projector.View) common.BoundingBox {
	if p.hidden {
		return common.BoundingBox{}
	}
	return p.Projector.Project(view)
}

func TestCPUStageClearsWhenGridLeavesView(t *testing.T) {
	dims, err := voxel.NewDims3(16, 16, 16)
	require.NoError(t, err)
	field, err := voxel.NewDiffusionField(dims)
	require.NoError(t, err)
	stage := NewCPUStage(field)
	cam := camera.NewCamera(camera.WithPosition(40, 0, 0), camera.WithViewport(64, 48))
	proj := &toggledProjector{Projector: projector.NewProjector(dims)}

	s, err := NewSimulation(cam, dims, stage, WithProjector(proj), WithPlannerOptions(dispatch.WithSeed(3)))
	require.NoError(t, err)

	report, err := s.Frame(0.05)
	require.NoError(t, err)
	require.False(t, report.Plan.Skip)
	assert.NotEqual(t, background, stage.Image().RGBAAt(32, 24))

	proj.hidden = true
	report, err = s.Frame(0.05)
	require.NoError(t, err)
	require.True(t, report.Plan.Skip)
	assert.Equal(t, background, stage.Image().RGBAAt(32, 24))
}
