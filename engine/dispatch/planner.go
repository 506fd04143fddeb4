package dispatch

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
)

// MaxInvocationsPerGroup is the largest workgroup the diffusion kernel may declare.
const MaxInvocationsPerGroup uint32 = 256

// Kernel names accepted by CheckWorkgroupSize.
const (
	KernelDiffusion = "diffusion"
	KernelRaymarch  = "raymarch"
)

var (
	// DefaultDiffusionGroupSize is the diffusion kernel's @workgroup_size.
	DefaultDiffusionGroupSize = [3]uint32{8, 4, 8}
	// DefaultRaymarchGroupSize is the raymarch kernel's @workgroup_size in x and y.
	DefaultRaymarchGroupSize = [2]uint32{16, 16}

	// ErrGroupSize is returned for a workgroup shape that is zero or too large.
	ErrGroupSize = errors.New("dispatch: invalid workgroup size")
)

// DispatchPlan holds the group counts for one frame.
type DispatchPlan struct {
	// DiffusionGroups is fixed per grid shape.
	DiffusionGroups [3]uint32
	// RaymarchGroups covers the projected bounding box; zero when Skip is set.
	RaymarchGroups [3]uint32
	// Skip is true when the bounding box has no area and the raymarch pass must not run.
	Skip bool
	// Seed seeds the initialization pass.
	Seed uint32
}

type plannerImpl struct {
	mu *sync.Mutex

	dims            voxel.Dims3
	diffusionSize   [3]uint32
	raymarchSize    [2]uint32
	diffusionGroups [3]uint32
	seed            uint32
	seedSet         bool
}

// Planner sizes the diffusion and raymarch dispatches and owns the per-run seed.
type Planner interface {
	// Plan builds the dispatch for one frame from the projected bounding box.
	//
	// Parameters:
	//   - box: the projected bounding box in pixels
	//
	// Returns:
	//   - DispatchPlan: group counts, skip flag and seed
	Plan(box common.BoundingBox) DispatchPlan

	// DiffusionGroups returns the cached diffusion group counts.
	DiffusionGroups() [3]uint32

	// RaymarchGroups returns the raymarch group counts for a box.
	//
	// Parameters:
	//   - box: the projected bounding box in pixels
	//
	// Returns:
	//   - [3]uint32: group counts, z is always 1
	//   - bool: false if the box has no area
	RaymarchGroups(box common.BoundingBox) ([3]uint32, bool)

	// DiffusionGroupSize returns the diffusion workgroup shape.
	DiffusionGroupSize() [3]uint32

	// RaymarchGroupSize returns the raymarch workgroup shape.
	RaymarchGroupSize() [2]uint32

	// Seed returns the seed generated at construction.
	Seed() uint32

	// Dims returns the grid the diffusion groups were computed for.
	Dims() voxel.Dims3

	// Resize recomputes the diffusion groups for a new grid.
	//
	// Parameters:
	//   - dims: the new grid extents
	//
	// Returns:
	//   - error: if dims is invalid
	Resize(dims voxel.Dims3) error

	// CheckWorkgroupSize compares a kernel's declared @workgroup_size with the planner's shape.
	//
	// Parameters:
	//   - kernel: KernelDiffusion or KernelRaymarch
	//   - size: the declared workgroup size
	//
	// Returns:
	//   - error: ErrGroupSize on mismatch
	CheckWorkgroupSize(kernel string, size [3]uint32) error
}

var _ Planner = &plannerImpl{}

// NewPlanner creates a planner for the given grid.
//
// Parameters:
//   - dims: the grid extents
//   - options: functional options to configure the planner
//
// Returns:
//   - Planner: the new planner
//   - error: if dims or a group shape is invalid
func NewPlanner(dims voxel.Dims3, options ...PlannerBuilderOption) (Planner, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	p := &plannerImpl{
		mu:            &sync.Mutex{},
		dims:          dims,
		diffusionSize: DefaultDiffusionGroupSize,
		raymarchSize:  DefaultRaymarchGroupSize,
	}
	for _, option := range options {
		option(p)
	}

	d := p.diffusionSize
	if d[0] == 0 || d[1] == 0 || d[2] == 0 || uint64(d[0])*uint64(d[1])*uint64(d[2]) > uint64(MaxInvocationsPerGroup) {
		return nil, fmt.Errorf("%w: diffusion %v exceeds %d invocations", ErrGroupSize, d, MaxInvocationsPerGroup)
	}
	r := p.raymarchSize
	if r[0] == 0 || r[1] == 0 || uint64(r[0])*uint64(r[1]) > uint64(MaxInvocationsPerGroup) {
		return nil, fmt.Errorf("%w: raymarch %v exceeds %d invocations", ErrGroupSize, r, MaxInvocationsPerGroup)
	}
	if !p.seedSet {
		p.seed = rand.Uint32()
	}
	p.computeDiffusionGroups()
	return p, nil
}

func (p *plannerImpl) Plan(box common.BoundingBox) DispatchPlan {
	p.mu.Lock()
	defer p.mu.Unlock()

	groups, ok := p.raymarchGroups(box)
	return DispatchPlan{
		DiffusionGroups: p.diffusionGroups,
		RaymarchGroups:  groups,
		Skip:            !ok,
		Seed:            p.seed,
	}
}

func (p *plannerImpl) DiffusionGroups() [3]uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.diffusionGroups
}

func (p *plannerImpl) RaymarchGroups(box common.BoundingBox) ([3]uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raymarchGroups(box)
}

func (p *plannerImpl) DiffusionGroupSize() [3]uint32 {
	return p.diffusionSize
}

func (p *plannerImpl) RaymarchGroupSize() [2]uint32 {
	return p.raymarchSize
}

func (p *plannerImpl) Seed() uint32 {
	return p.seed
}

func (p *plannerImpl) Dims() voxel.Dims3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

func (p *plannerImpl) Resize(dims voxel.Dims3) error {
	if err := dims.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dims = dims
	p.computeDiffusionGroups()
	return nil
}

func (p *plannerImpl) CheckWorkgroupSize(kernel string, size [3]uint32) error {
	var want [3]uint32
	switch kernel {
	case KernelDiffusion:
		want = p.diffusionSize
	case KernelRaymarch:
		want = [3]uint32{p.raymarchSize[0], p.raymarchSize[1], 1}
	default:
		return fmt.Errorf("%w: unknown kernel %q", ErrGroupSize, kernel)
	}
	if size != want {
		return fmt.Errorf("%w: %s kernel declares %v, planner expects %v", ErrGroupSize, kernel, size, want)
	}
	return nil
}

// computeDiffusionGroups caches ceil(dims / groupSize). Caller must hold the mutex.
func (p *plannerImpl) computeDiffusionGroups() {
	dims := p.dims.Array()
	for i := range dims {
		p.diffusionGroups[i] = common.CeilDiv(dims[i], p.diffusionSize[i])
	}
}

// raymarchGroups covers the box with raymarch groups. Caller must hold the mutex.
func (p *plannerImpl) raymarchGroups(box common.BoundingBox) ([3]uint32, bool) {
	if box.Empty() {
		return [3]uint32{}, false
	}
	return [3]uint32{
		common.CeilDiv(box.Width(), p.raymarchSize[0]),
		common.CeilDiv(box.Height(), p.raymarchSize[1]),
		1,
	}, true
}
