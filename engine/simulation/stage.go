package simulation

import (
	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
)

// State is the frame orchestrator's lifecycle state.
type State int

const (
	// StateUninitialized runs the init pass on the next frame.
	StateUninitialized State = iota
	// StateSteady runs a diffusion step every frame.
	StateSteady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// Stage names one step of a frame.
type Stage int

const (
	StageInit Stage = iota
	StageDiffuse
	StageRaymarch
	StagePresent
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageDiffuse:
		return "diffuse"
	case StageRaymarch:
		return "raymarch"
	case StagePresent:
		return "present"
	default:
		return "unknown"
	}
}

// FrameParams is everything a stage needs for one frame.
type FrameParams struct {
	Frame uint64
	Init  bool

	// Current is the buffer written by this frame's init or diffuse pass and read by raymarch.
	// Diffuse reads Current.Other().
	Current voxel.BufferIndex

	Timestep float32
	Time     float32

	HalfWidth  int32
	HalfHeight int32
	Box        common.BoundingBox
	Plan       dispatch.DispatchPlan

	BaseCoefficient      float32
	ReferenceTemperature float32

	Uniform GPUFrameUniform
}

// ReadBuffer returns the buffer the diffuse pass reads.
func (p FrameParams) ReadBuffer() voxel.BufferIndex {
	return p.Current.Other()
}

// ComputeStage runs the compute passes of a frame. Each call must be sequenced after the previous one.
type ComputeStage interface {
	// Initialize seeds params.Current from params.Plan.Seed.
	Initialize(params FrameParams) error
	// Diffuse reads params.ReadBuffer() and writes params.Current.
	Diffuse(params FrameParams) error
	// Raymarch samples params.Current over params.Box using params.Plan.RaymarchGroups.
	Raymarch(params FrameParams) error
}

// Clearer is implemented by stages whose colour target outlives a frame. Frame calls Clear
// instead of Raymarch when the dispatch is skipped, so an off-screen grid leaves no image behind.
type Clearer interface {
	Clear(params FrameParams) error
}

// Presenter shows the finished colour target. A surface problem is reported as ErrSurfaceLost or ErrSurfaceOutdated.
type Presenter interface {
	Present(params FrameParams) error
}
