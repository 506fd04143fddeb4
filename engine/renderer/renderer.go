package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPipelineNotFound is returned when a stage runs before its pipeline was registered.
var ErrPipelineNotFound = errors.New("renderer: pipeline not found")

// Surface is the window-side collaborator the renderer presents to.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	planner              dispatch.Planner
	species              int

	dims          voxel.Dims3
	width, height int

	computeLayouts    []*wgpu.BindGroupLayout
	presentLayouts    []*wgpu.BindGroupLayout
	computeDescriptor wgpu.BindGroupLayoutDescriptor
	presentDescriptor wgpu.BindGroupLayoutDescriptor
	computeProvider   bind_group_provider.BindGroupProvider
	presentProvider   bind_group_provider.BindGroupProvider
	target            *wgpu.Texture

	uniformBinding int
	fieldBindings  [2]int
	outputBinding  int
	frameBinding   int
}

// Renderer runs the voxel kernels on the GPU and presents the raymarched colour target.
//
// It is the GPU implementation of simulation.ComputeStage and simulation.Presenter. All methods must
// be called from the goroutine that created it, since the backend locks that goroutine to its OS thread.
type Renderer interface {
	simulation.ComputeStage
	simulation.Presenter

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: one of the PipelineKey constants
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// Resize reconfigures the surface and recreates the raymarch colour target for a new framebuffer size.
	// Non-positive sizes are ignored, which happens while the window is minimized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: if the colour target or its bind groups could not be recreated
	Resize(width, height int) error

	// Reconfigure configures the surface again at its current size. The engine calls it after a
	// recoverable presentation failure.
	Reconfigure()

	// SetPresentMode sets the surface present mode. A call to Resize or Reconfigure is required
	// for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release frees every GPU resource, then the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a GPU renderer for a voxel grid, presenting to the given surface.
// It panics when no GPU adapter or device is available.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - surface: the window providing the surface descriptor and framebuffer size
//   - dims: the voxel grid extents, which size the field buffers
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer with every pipeline and bind group created
//   - error: if a kernel disagrees with the planner or a GPU resource could not be created
func NewRenderer(backendType RendererBackendType, surface Surface, dims voxel.Dims3, options ...RendererBuilderOption) (Renderer, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: newPipelines(),
		backendType:   backendType,
		species:       1,
		dims:          dims,
		width:         surface.Width(),
		height:        surface.Height(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.planner != nil {
		if err := checkWorkgroupSizes(r.planner, r.pipelineCache); err != nil {
			return nil, err
		}
	}
	if err := r.resolveBindings(); err != nil {
		return nil, err
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(r.width, r.height)

	if err := r.registerPipelines(); err != nil {
		r.Release()
		return nil, err
	}
	if err := r.initBindGroups(); err != nil {
		r.Release()
		return nil, err
	}

	log.Printf("[Renderer] ready: grid %dx%dx%d, %d species, surface %dx%d", dims.I, dims.J, dims.K, r.species, r.width, r.height)
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) Initialize(params simulation.FrameParams) error {
	return r.dispatch(PipelineKeyInit, params, params.Plan.DiffusionGroups)
}

func (r *renderer) Diffuse(params simulation.FrameParams) error {
	return r.dispatch(PipelineKeyLaplacian, params, params.Plan.DiffusionGroups)
}

func (r *renderer) Raymarch(params simulation.FrameParams) error {
	return r.dispatch(PipelineKeyRaymarch, params, params.Plan.RaymarchGroups)
}

func (r *renderer) Present(params simulation.FrameParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pipelineCache[PipelineKeyPresent]
	if p == nil || p.Pipeline() == nil {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, PipelineKeyPresent)
	}
	r.writeUniform(params)

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("acquire surface texture: %w: %w", simulation.ErrSurfaceOutdated, err)
	}
	r.backend.Draw(p, r.presentProvider, 3)
	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if width == r.width && height == r.height {
		return nil
	}
	r.width, r.height = width, height
	r.backend.ConfigureSurface(width, height)
	return r.rebuildTarget()
}

func (r *renderer) Reconfigure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.ConfigureSurface(r.width, r.height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.presentProvider != nil {
		r.presentProvider.Release()
		r.presentProvider = nil
	}
	if r.computeProvider != nil {
		r.computeProvider.Release()
		r.computeProvider = nil
	}
	if r.target != nil {
		r.target.Release()
		r.target = nil
	}
	for _, layouts := range [][]*wgpu.BindGroupLayout{r.computeLayouts, r.presentLayouts} {
		for _, l := range layouts {
			if l != nil {
				l.Release()
			}
		}
	}
	r.computeLayouts, r.presentLayouts = nil, nil
	for _, p := range r.pipelineCache {
		p.Release()
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
}

// dispatch writes the frame uniform and submits one compute pass.
func (r *renderer) dispatch(key string, params simulation.FrameParams, groups [3]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pipelineCache[key]
	if p == nil || p.Pipeline() == nil {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, key)
	}
	r.writeUniform(params)

	if err := r.backend.BeginComputeFrame(); err != nil {
		return err
	}
	r.backend.DispatchCompute(p, r.computeProvider, groups)
	return r.backend.EndComputeFrame()
}

// writeUniform queues the frame record. Caller must hold the mutex.
func (r *renderer) writeUniform(params simulation.FrameParams) {
	uniform := params.Uniform
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: r.computeProvider,
		Binding:  r.uniformBinding,
		Data:     uniform.Marshal(),
	}})
}

// resolveBindings looks up the binding indices of the shared variables by name.
func (r *renderer) resolveBindings() error {
	raymarch := r.pipelineCache[PipelineKeyRaymarch].Shader(shader.ShaderTypeCompute)
	present := r.pipelineCache[PipelineKeyPresent].Shader(shader.ShaderTypeFragment)

	var err error
	if r.uniformBinding, err = binding(raymarch, varFrameUniform); err != nil {
		return err
	}
	if r.fieldBindings[voxel.BufferA], err = binding(raymarch, varFieldA); err != nil {
		return err
	}
	if r.fieldBindings[voxel.BufferB], err = binding(raymarch, varFieldB); err != nil {
		return err
	}
	if r.outputBinding, err = binding(raymarch, varOutput); err != nil {
		return err
	}
	if r.frameBinding, err = binding(present, varFrame); err != nil {
		return err
	}
	if b, err := binding(present, varFrameUniform); err != nil || b != r.uniformBinding {
		return fmt.Errorf("present.wgsl must bind %q at %d", varFrameUniform, r.uniformBinding)
	}
	return nil
}

// registerPipelines creates the shared compute layout, the present layout and every GPU pipeline.
func (r *renderer) registerPipelines() error {
	computeDescriptors := computeLayoutDescriptors(r.pipelineCache)
	layouts, err := r.backend.CreateBindGroupLayouts(computeDescriptors)
	if err != nil {
		return err
	}
	r.computeLayouts = layouts
	r.computeDescriptor = computeDescriptors[0]

	for _, key := range computePipelineKeys {
		if err := r.backend.RegisterComputePipeline(r.pipelineCache[key], r.computeLayouts); err != nil {
			return fmt.Errorf("register %s pipeline: %w", key, err)
		}
	}

	present := r.pipelineCache[PipelineKeyPresent]
	presentDescriptors := present.BindGroupLayoutDescriptors()
	if desc, ok := presentDescriptors[0]; ok {
		desc.Label = "Present Layout"
		presentDescriptors[0] = desc
	}
	layouts, err = r.backend.CreateBindGroupLayouts(presentDescriptors)
	if err != nil {
		return err
	}
	r.presentLayouts = layouts
	r.presentDescriptor = presentDescriptors[0]

	if err := r.backend.RegisterRenderPipeline(present, r.presentLayouts); err != nil {
		return fmt.Errorf("register %s pipeline: %w", PipelineKeyPresent, err)
	}
	return nil
}

// initBindGroups creates the field buffers, the uniform buffer, the colour target and both bind groups.
func (r *renderer) initBindGroups() error {
	r.computeProvider = bind_group_provider.NewBindGroupProvider("Voxel Compute",
		bind_group_provider.WithBindGroupLayout(r.computeLayouts[0]),
	)
	if err := r.createTarget(r.computeProvider, nil); err != nil {
		return err
	}

	fieldBytes := uint64(r.dims.Count()) * uint64(r.species) * 4
	if err := r.backend.InitBindGroup(r.computeProvider, r.computeDescriptor, map[int]uint64{
		r.fieldBindings[voxel.BufferA]: fieldBytes,
		r.fieldBindings[voxel.BufferB]: fieldBytes,
	}); err != nil {
		return fmt.Errorf("compute bind group: %w", err)
	}

	r.presentProvider = bind_group_provider.NewBindGroupProvider("Present",
		bind_group_provider.WithBindGroupLayout(r.presentLayouts[0]),
		bind_group_provider.WithBuffer(r.uniformBinding, r.computeProvider.Buffer(r.uniformBinding), r.computeProvider.BufferSize(r.uniformBinding)),
	)
	if err := r.createTarget(nil, r.presentProvider); err != nil {
		return err
	}
	if err := r.backend.InitBindGroup(r.presentProvider, r.presentDescriptor, nil); err != nil {
		return fmt.Errorf("present bind group: %w", err)
	}
	return nil
}

// createTarget creates the colour target when missing and hands a fresh view of it to each non-nil provider.
func (r *renderer) createTarget(compute, present bind_group_provider.BindGroupProvider) error {
	if r.target == nil {
		tex, err := r.backend.CreateStorageTarget(r.width, r.height)
		if err != nil {
			return fmt.Errorf("create raymarch target: %w", err)
		}
		r.target = tex
	}
	if compute != nil {
		view, err := r.target.CreateView(nil)
		if err != nil {
			return err
		}
		compute.SetTextureView(r.outputBinding, view)
	}
	if present != nil {
		view, err := r.target.CreateView(nil)
		if err != nil {
			return err
		}
		present.SetTextureView(r.frameBinding, view)
	}
	return nil
}

// rebuildTarget replaces the colour target after a resize and re-creates both bind groups
// around the existing buffers. Caller must hold the mutex.
func (r *renderer) rebuildTarget() error {
	r.computeProvider.ReleaseBindGroup()
	r.presentProvider.ReleaseBindGroup()
	if tv := r.computeProvider.TextureView(r.outputBinding); tv != nil {
		tv.Release()
	}
	if tv := r.presentProvider.TextureView(r.frameBinding); tv != nil {
		tv.Release()
	}
	r.target.Release()
	r.target = nil

	if err := r.createTarget(r.computeProvider, r.presentProvider); err != nil {
		return err
	}
	if err := r.backend.InitBindGroup(r.computeProvider, r.computeDescriptor, nil); err != nil {
		return fmt.Errorf("compute bind group: %w", err)
	}
	if err := r.backend.InitBindGroup(r.presentProvider, r.presentDescriptor, nil); err != nil {
		return fmt.Errorf("present bind group: %w", err)
	}
	return nil
}
