package renderer

import (
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how finished frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately for the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the GPU API seam under the Renderer. Every method that records
// commands must run on the thread that created the backend.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain for a framebuffer size.
	ConfigureSurface(width, height int)

	// SetPresentMode changes the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the swapchain texture format chosen by ConfigureSurface.
	SurfaceFormat() wgpu.TextureFormat

	// CreateBindGroupLayouts creates one layout per group index, in group order.
	//
	// Parameters:
	//   - descriptors: layout descriptors keyed by group index
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: layouts indexed by group
	//   - error: if a layout could not be created
	CreateBindGroupLayouts(descriptors map[int]wgpu.BindGroupLayoutDescriptor) ([]*wgpu.BindGroupLayout, error)

	// RegisterComputePipeline creates the shader module and compute pipeline for p against the
	// given layouts and stores the result with p.SetComputePipeline.
	RegisterComputePipeline(p pipeline.Pipeline, layouts []*wgpu.BindGroupLayout) error

	// RegisterRenderPipeline creates the shader modules and render pipeline for p, targeting the
	// surface format, and stores the result with p.SetRenderPipeline.
	RegisterRenderPipeline(p pipeline.Pipeline, layouts []*wgpu.BindGroupLayout) error

	// CreateStorageTarget creates the rgba8unorm colour target the raymarch kernel writes and
	// the present pass reads.
	CreateStorageTarget(width, height int) (*wgpu.Texture, error)

	// InitBindGroup creates any missing buffers for the descriptor's buffer entries and then
	// the bind group itself. Texture entries must already have a view on the provider.
	//
	// Parameters:
	//   - provider: receives the buffers and the bind group
	//   - descriptor: the layout descriptor of the group
	//   - bufferSizeOverrides: byte sizes by binding, for runtime-sized arrays
	//
	// Returns:
	//   - error: if a resource could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers queues every write; they land before the next submission.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame opens the encoder that collects compute passes until EndComputeFrame.
	BeginComputeFrame() error

	// DispatchCompute records one compute pass with the provider's bind group at group 0.
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// EndComputeFrame finishes and submits the compute encoder.
	EndComputeFrame() error

	// BeginFrame acquires the next swapchain texture and begins the present pass.
	BeginFrame() error

	// Draw records a non-indexed draw in the present pass.
	Draw(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, vertexCount uint32)

	// EndFrame ends the present pass and submits it.
	EndFrame() error

	// Present shows the acquired swapchain texture and releases it.
	Present()

	// Release frees the surface, device, adapter and instance.
	Release()
}
