package simulation

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/projector"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
)

// FrameReport summarizes one call to Frame.
type FrameReport struct {
	Frame          uint64
	State          State
	Timestep       float32
	Time           float32
	Box            common.BoundingBox
	Plan           dispatch.DispatchPlan
	ReadBufferFlag bool
}

type simulationImpl struct {
	mu *sync.Mutex

	camera    camera.Camera
	dims      voxel.Dims3
	species   int
	planner   dispatch.Planner
	projector projector.Projector
	stage     ComputeStage
	presenter Presenter

	plannerOptions []dispatch.PlannerBuilderOption

	state    State
	selector voxel.BufferSelector
	frame    uint64
	time     float32
	lastBox  common.BoundingBox
	uniform  GPUFrameUniform

	maxTimestep          float32
	baseCoefficient      float32
	referenceTemperature float32
}

// Simulation is the explicitly owned frame context. It holds the camera, the buffer
// selection and the dispatch state, and advances them one frame at a time.
// Only one goroutine may drive Frame.
type Simulation interface {
	// Frame advances one frame: clamp dt and advance time, flip the buffer selection
	// unless this is the init frame, project the grid and plan the dispatch, run the
	// init or diffuse stage, run the raymarch stage unless the plan skips it, then present.
	//
	// A failed diffuse stage undoes the flip. A failed init stage leaves the state
	// Uninitialized so the next frame initializes again. The returned *StageError
	// wraps the collaborator's error unchanged.
	//
	// Parameters:
	//   - dt: elapsed time in seconds since the previous frame
	//
	// Returns:
	//   - FrameReport: the state after the frame
	//   - error: a *StageError if any stage failed
	Frame(dt float32) (FrameReport, error)

	// Apply forwards an input command to the camera. Call it between frames.
	//
	// Parameters:
	//   - cmd: the camera command
	Apply(cmd camera.Command)

	// State returns the lifecycle state.
	State() State

	// Camera returns the owned camera.
	Camera() camera.Camera

	// Planner returns the dispatch planner.
	Planner() dispatch.Planner

	// Projector returns the bounding box projector.
	Projector() projector.Projector

	// Dims returns the grid extents.
	Dims() voxel.Dims3

	// Species returns the number of scalar fields per voxel.
	Species() int

	// Current returns the buffer holding the latest completed values.
	Current() voxel.BufferIndex

	// ReadBufferFlag is true while BufferA is current.
	ReadBufferFlag() bool

	// LastBox returns the box of the last frame whose compute stages all succeeded.
	LastBox() common.BoundingBox

	// Time returns the accumulated simulation time in seconds.
	Time() float32

	// FrameCount returns the number of frames attempted.
	FrameCount() uint64

	// Uniform returns the parameter record of the last frame.
	Uniform() GPUFrameUniform

	// MaxTimestep returns the timestep cap.
	MaxTimestep() float32

	// SetMaxTimestep changes the timestep cap from the next frame on.
	//
	// Parameters:
	//   - dt: the new cap in seconds, must be positive
	//
	// Returns:
	//   - error: if dt is not positive
	SetMaxTimestep(dt float32) error

	// SetBaseCoefficient changes the diffusion coefficient from the next frame on.
	//
	// Parameters:
	//   - d: coefficient at the reference temperature, must not be negative
	//
	// Returns:
	//   - error: if d is negative
	SetBaseCoefficient(d float32) error
}

var _ Simulation = &simulationImpl{}

// NewSimulation builds the frame context for a grid viewed through cam.
//
// Parameters:
//   - cam: the camera, owned by the simulation from here on
//   - dims: the grid extents
//   - stage: the compute collaborator
//   - options: functional options to configure the simulation
//
// Returns:
//   - Simulation: the new simulation in StateUninitialized
//   - error: if dims, the planner configuration or a tuning value is invalid
func NewSimulation(cam camera.Camera, dims voxel.Dims3, stage ComputeStage, options ...SimulationBuilderOption) (Simulation, error) {
	if cam == nil {
		return nil, ErrNoCamera
	}
	if stage == nil {
		return nil, ErrNoStage
	}
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	s := &simulationImpl{
		mu:                   &sync.Mutex{},
		camera:               cam,
		dims:                 dims,
		species:              1,
		stage:                stage,
		state:                StateUninitialized,
		maxTimestep:          voxel.DefaultMaxStableTimestep,
		baseCoefficient:      1.0,
		referenceTemperature: 300.0,
	}
	for _, option := range options {
		option(s)
	}

	if s.maxTimestep <= 0 {
		return nil, fmt.Errorf("simulation: max timestep must be positive, got %v", s.maxTimestep)
	}
	if s.baseCoefficient < 0 {
		return nil, fmt.Errorf("simulation: diffusion coefficient must not be negative, got %v", s.baseCoefficient)
	}
	if s.species < 1 {
		return nil, fmt.Errorf("simulation: species count must be at least 1, got %d", s.species)
	}
	if s.planner == nil {
		p, err := dispatch.NewPlanner(dims, s.plannerOptions...)
		if err != nil {
			return nil, fmt.Errorf("simulation: %w", err)
		}
		s.planner = p
	}
	if s.projector == nil {
		s.projector = projector.NewProjector(dims)
	}
	return s, nil
}

func (s *simulationImpl) Frame(dt float32) (FrameReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.clampTimestep(dt)
	s.time += step
	s.frame++
	init := s.state == StateUninitialized

	if !init {
		s.selector.Toggle()
	}

	box := s.projector.Project(s.camera)
	plan := s.planner.Plan(box)
	params := s.params(init, step, box, plan)
	s.uniform = params.Uniform

	if init {
		if err := s.stage.Initialize(params); err != nil {
			return s.report(step, box, plan), &StageError{Stage: StageInit, Frame: s.frame, Err: err}
		}
		s.state = StateSteady
	} else {
		if err := s.stage.Diffuse(params); err != nil {
			s.selector.Toggle()
			return s.report(step, box, plan), &StageError{Stage: StageDiffuse, Frame: s.frame, Err: err}
		}
	}

	if !plan.Skip {
		if err := s.stage.Raymarch(params); err != nil {
			return s.report(step, box, plan), &StageError{Stage: StageRaymarch, Frame: s.frame, Err: err}
		}
	} else if c, ok := s.stage.(Clearer); ok {
		if err := c.Clear(params); err != nil {
			return s.report(step, box, plan), &StageError{Stage: StageRaymarch, Frame: s.frame, Err: err}
		}
	}
	s.lastBox = box

	if s.presenter != nil {
		if err := s.presenter.Present(params); err != nil {
			return s.report(step, box, plan), &StageError{Stage: StagePresent, Frame: s.frame, Err: err}
		}
	}
	return s.report(step, box, plan), nil
}

func (s *simulationImpl) Apply(cmd camera.Command) {
	s.camera.Apply(cmd)
}

func (s *simulationImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *simulationImpl) Camera() camera.Camera {
	return s.camera
}

func (s *simulationImpl) Planner() dispatch.Planner {
	return s.planner
}

func (s *simulationImpl) Projector() projector.Projector {
	return s.projector
}

func (s *simulationImpl) Dims() voxel.Dims3 {
	return s.dims
}

func (s *simulationImpl) Species() int {
	return s.species
}

func (s *simulationImpl) Current() voxel.BufferIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Current()
}

func (s *simulationImpl) ReadBufferFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Flag()
}

func (s *simulationImpl) LastBox() common.BoundingBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBox
}

func (s *simulationImpl) Time() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

func (s *simulationImpl) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *simulationImpl) Uniform() GPUFrameUniform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniform
}

func (s *simulationImpl) MaxTimestep() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTimestep
}

func (s *simulationImpl) SetMaxTimestep(dt float32) error {
	if !(dt > 0) {
		return fmt.Errorf("simulation: max timestep must be positive, got %v", dt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTimestep = dt
	return nil
}

func (s *simulationImpl) SetBaseCoefficient(d float32) error {
	if !(d >= 0) {
		return fmt.Errorf("simulation: diffusion coefficient must not be negative, got %v", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseCoefficient = d
	return nil
}

// clampTimestep maps dt into [0, maxTimestep]; NaN becomes 0. Caller must hold the mutex.
func (s *simulationImpl) clampTimestep(dt float32) float32 {
	if !(dt > 0) {
		return 0
	}
	return min(dt, s.maxTimestep)
}

// params assembles the stage inputs and the uniform record for this frame. Caller must hold the mutex.
func (s *simulationImpl) params(init bool, step float32, box common.BoundingBox, plan dispatch.DispatchPlan) FrameParams {
	halfW, halfH := s.camera.HalfExtents()
	current := s.selector.Current()

	return FrameParams{
		Frame:                s.frame,
		Init:                 init,
		Current:              current,
		Timestep:             step,
		Time:                 s.time,
		HalfWidth:            int32(halfW),
		HalfHeight:           int32(halfH),
		Box:                  box,
		Plan:                 plan,
		BaseCoefficient:      s.baseCoefficient,
		ReferenceTemperature: s.referenceTemperature,
		Uniform: GPUFrameUniform{
			WindowDims:  [4]uint32{uint32(halfW), uint32(halfH), 0, 0},
			Dims:        [4]uint32{s.dims.I, s.dims.J, s.dims.K, s.dims.Stride()},
			BoundingBox: [4]int32{box.MinX, box.MinY, box.MaxX, box.MaxY},
			Camera:      s.camera.GPUBlock(),
			Timestep:    [4]float32{step, s.time, s.baseCoefficient, s.referenceTemperature},
			Seed:        [4]uint32{plan.Seed, uint32(s.species), 0, 0},
			Flags:       [4]uint32{boolU32(init), boolU32(current == voxel.BufferA), 0, 0},
		},
	}
}

// report captures the frame result. Caller must hold the mutex.
func (s *simulationImpl) report(step float32, box common.BoundingBox, plan dispatch.DispatchPlan) FrameReport {
	return FrameReport{
		Frame:          s.frame,
		State:          s.state,
		Timestep:       step,
		Time:           s.time,
		Box:            box,
		Plan:           plan,
		ReadBufferFlag: s.selector.Flag(),
	}
}
