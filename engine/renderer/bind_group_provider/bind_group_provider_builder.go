package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option for configuring a BindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout presets the layout so the backend does not create one from the descriptor.
//
// Parameters:
//   - bgl: the shared bind group layout
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer presets a buffer at a binding, shared with another provider.
//
// Parameters:
//   - binding: the binding index
//   - buf: the existing buffer
//   - size: its size in bytes
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithBuffer(binding int, buf *wgpu.Buffer, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
		p.bufferSizes[binding] = size
		p.shared[binding] = true
	}
}
