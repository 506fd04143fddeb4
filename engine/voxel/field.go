package voxel

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DefaultMaxStableTimestep caps the timestep of one explicit-Euler diffusion step.
const DefaultMaxStableTimestep float32 = 1.0 / 6.0

// maxStableProduct bounds coefficient*dt per voxel; above 1/6 the 6-neighbour update oscillates.
const maxStableProduct float32 = 1.0 / 6.0

const (
	initialMean   = 0.5
	initialStdDev = 0.1
)

var (
	// ErrNotInitialized is returned by Step before Initialize has run.
	ErrNotInitialized = errors.New("voxel: field is not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("voxel: field is already initialized")
)

type diffusionFieldImpl struct {
	mu *sync.Mutex

	dims    Dims3
	species int

	buffers  [2][]float32
	selector BufferSelector

	states      []VoxelState
	temperature []float32
	coeff       []float32
	coeffDirty  bool

	coefficientFunc      CoefficientFunc
	baseCoefficient      float32
	insideScale          float32
	referenceTemperature float32
	maxTimestep          float32

	initialized bool
	pool        worker.DynamicWorkerPool
	slabs       int
}

// DiffusionField is a double-buffered scalar field per species over a 3D grid,
// evolved with a 6-neighbour discrete Laplacian. Values are laid out planar by species:
// species*I*J*K + x + I*(y + J*z).
type DiffusionField interface {
	// Dims returns the grid extents.
	Dims() Dims3

	// Species returns the number of independent scalar fields.
	Species() int

	// Initialized reports whether Initialize has run.
	Initialized() bool

	// Initialize seeds the current buffer from N(0.5, 0.1) clamped to >= 0 and resets
	// every voxel to StateOutside at the reference temperature. It runs exactly once
	// and does not change the current buffer.
	//
	// Parameters:
	//   - seed: the random seed for the normal draws
	//
	// Returns:
	//   - error: ErrAlreadyInitialized on a second call
	Initialize(seed uint32) error

	// Step advances the field by dt: it reads the current buffer, writes the other one,
	// and toggles the current buffer exactly once.
	//
	// Parameters:
	//   - dt: requested timestep in seconds, clamped by EffectiveTimestep
	//
	// Returns:
	//   - error: ErrNotInitialized before Initialize
	Step(dt float32) error

	// StepInto advances the field reading target.Other() and writing target, then makes
	// target current. Frame drivers that choose the write buffer up front use this form.
	//
	// Parameters:
	//   - target: the buffer to write
	//   - dt: requested timestep in seconds
	//
	// Returns:
	//   - error: ErrNotInitialized before Initialize
	StepInto(target BufferIndex, dt float32) error

	// EffectiveTimestep clamps dt to [0, MaxStableTimestep].
	EffectiveTimestep(dt float32) float32

	// MaxStableTimestep returns the timestep cap.
	MaxStableTimestep() float32

	// Current returns the buffer holding the latest completed values.
	Current() BufferIndex

	// ReadBufferFlag is true while BufferA is current.
	ReadBufferFlag() bool

	// Buffer returns a copy of the given buffer.
	Buffer(idx BufferIndex) []float32

	// Value returns the current value of a voxel for one species.
	//
	// Parameters:
	//   - x, y, z: voxel coordinates
	//   - species: species index
	//
	// Returns:
	//   - float32: the value
	//   - bool: false if any index is out of range
	Value(x, y, z, species int) (float32, bool)

	// SetValue overwrites the current value of a voxel. Returns false when out of range.
	SetValue(x, y, z, species int, v float32) bool

	// State returns the micelle tag of a voxel.
	State(x, y, z int) (VoxelState, bool)

	// SetState sets the micelle tag of a voxel. Returns false when out of range.
	SetState(x, y, z int, s VoxelState) bool

	// Temperature returns the temperature of a voxel.
	Temperature(x, y, z int) (float32, bool)

	// SetTemperature sets the temperature of a voxel. Returns false when out of range.
	SetTemperature(x, y, z int, t float32) bool

	// Coefficient returns the diffusion coefficient currently applied to a voxel.
	Coefficient(x, y, z int) (float32, bool)

	// SetBaseCoefficient replaces the coefficient at the reference temperature.
	SetBaseCoefficient(d float32)

	// Sum returns the total of the current buffer for one species.
	//
	// Returns:
	//   - float64: the sum
	//   - bool: false if species is out of range
	Sum(species int) (float64, bool)
}

var _ DiffusionField = &diffusionFieldImpl{}

// NewDiffusionField allocates both buffers for the grid. The field must be initialized before stepping.
//
// Parameters:
//   - dims: the grid extents
//   - options: functional options to configure the field
//
// Returns:
//   - DiffusionField: the new field
//   - error: if dims or any option value is invalid
func NewDiffusionField(dims Dims3, options ...DiffusionFieldOption) (DiffusionField, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	f := &diffusionFieldImpl{
		mu:                   &sync.Mutex{},
		dims:                 dims,
		species:              1,
		baseCoefficient:      1.0,
		insideScale:          0.25,
		referenceTemperature: 300.0,
		maxTimestep:          DefaultMaxStableTimestep,
	}
	for _, option := range options {
		option(f)
	}
	if f.species < 1 {
		return nil, fmt.Errorf("voxel: species count must be at least 1, got %d", f.species)
	}
	if f.maxTimestep <= 0 {
		return nil, fmt.Errorf("voxel: max timestep must be positive, got %v", f.maxTimestep)
	}
	if f.referenceTemperature <= 0 {
		return nil, fmt.Errorf("voxel: reference temperature must be positive, got %v", f.referenceTemperature)
	}
	if f.baseCoefficient < 0 {
		return nil, fmt.Errorf("voxel: diffusion coefficient must not be negative, got %v", f.baseCoefficient)
	}
	if f.coefficientFunc == nil {
		f.coefficientFunc = f.defaultCoefficient
	}

	n := dims.Count()
	f.buffers[BufferA] = make([]float32, n*f.species)
	f.buffers[BufferB] = make([]float32, n*f.species)
	f.states = make([]VoxelState, n)
	f.temperature = make([]float32, n)
	f.coeff = make([]float32, n)
	for i := range f.temperature {
		f.temperature[i] = f.referenceTemperature
	}
	f.coeffDirty = true
	return f, nil
}

func (f *diffusionFieldImpl) Dims() Dims3 {
	return f.dims
}

func (f *diffusionFieldImpl) Species() int {
	return f.species
}

func (f *diffusionFieldImpl) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

func (f *diffusionFieldImpl) Initialize(seed uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return ErrAlreadyInitialized
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)<<32|0x9e3779b9))
	dst := f.buffers[f.selector.Current()]
	for i := range dst {
		v := initialMean + initialStdDev*rng.NormFloat64()
		dst[i] = float32(max(v, 0))
	}
	for i := range f.states {
		f.states[i] = StateOutside
		f.temperature[i] = f.referenceTemperature
	}
	f.coeffDirty = true
	f.initialized = true
	return nil
}

func (f *diffusionFieldImpl) Step(dt float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stepInto(f.selector.Current().Other(), dt)
}

func (f *diffusionFieldImpl) StepInto(target BufferIndex, dt float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stepInto(target, dt)
}

func (f *diffusionFieldImpl) EffectiveTimestep(dt float32) float32 {
	if dt <= 0 || dt != dt {
		return 0
	}
	return min(dt, f.maxTimestep)
}

func (f *diffusionFieldImpl) MaxStableTimestep() float32 {
	return f.maxTimestep
}

func (f *diffusionFieldImpl) Current() BufferIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selector.Current()
}

func (f *diffusionFieldImpl) ReadBufferFlag() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selector.Flag()
}

func (f *diffusionFieldImpl) Buffer(idx BufferIndex) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx != BufferA && idx != BufferB {
		return nil
	}
	out := make([]float32, len(f.buffers[idx]))
	copy(out, f.buffers[idx])
	return out
}

func (f *diffusionFieldImpl) Value(x, y, z, species int) (float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.speciesIndex(x, y, z, species)
	if !ok {
		return 0, false
	}
	return f.buffers[f.selector.Current()][i], true
}

func (f *diffusionFieldImpl) SetValue(x, y, z, species int, v float32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.speciesIndex(x, y, z, species)
	if !ok {
		return false
	}
	f.buffers[f.selector.Current()][i] = v
	return true
}

func (f *diffusionFieldImpl) State(x, y, z int) (VoxelState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return 0, false
	}
	return f.states[i], true
}

func (f *diffusionFieldImpl) SetState(x, y, z int, s VoxelState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return false
	}
	f.states[i] = s
	f.coeffDirty = true
	return true
}

func (f *diffusionFieldImpl) Temperature(x, y, z int) (float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return 0, false
	}
	return f.temperature[i], true
}

func (f *diffusionFieldImpl) SetTemperature(x, y, z int, t float32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return false
	}
	f.temperature[i] = t
	f.coeffDirty = true
	return true
}

func (f *diffusionFieldImpl) Coefficient(x, y, z int) (float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return 0, false
	}
	f.refreshCoefficients()
	return f.coeff[i], true
}

func (f *diffusionFieldImpl) SetBaseCoefficient(d float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		return
	}
	f.baseCoefficient = d
	f.coeffDirty = true
}

func (f *diffusionFieldImpl) Sum(species int) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if species < 0 || species >= f.species {
		return 0, false
	}
	n := f.dims.Count()
	var sum float64
	for _, v := range f.buffers[f.selector.Current()][species*n : (species+1)*n] {
		sum += float64(v)
	}
	return sum, true
}

// speciesIndex maps a voxel and species to an index into a buffer. Caller must hold the mutex.
func (f *diffusionFieldImpl) speciesIndex(x, y, z, species int) (int, bool) {
	if species < 0 || species >= f.species {
		return 0, false
	}
	i, ok := f.dims.Index(x, y, z)
	if !ok {
		return 0, false
	}
	return species*f.dims.Count() + i, true
}

// refreshCoefficients recomputes the per-voxel coefficients after a temperature or
// state change. Caller must hold the mutex.
func (f *diffusionFieldImpl) refreshCoefficients() {
	if !f.coeffDirty {
		return
	}
	for i := range f.coeff {
		f.coeff[i] = max(f.coefficientFunc(f.temperature[i], f.states[i]), 0)
	}
	f.coeffDirty = false
}

// defaultCoefficient scales the base coefficient linearly with absolute temperature
// and slows diffusion inside micelles.
func (f *diffusionFieldImpl) defaultCoefficient(temperature float32, state VoxelState) float32 {
	d := f.baseCoefficient * temperature / f.referenceTemperature
	if state == StateInside {
		d *= f.insideScale
	}
	return d
}
