package renderer

import (
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithPlanner checks every kernel's @workgroup_size against the planner before any GPU object is created.
//
// Parameters:
//   - p: the planner whose group shapes the dispatches use
//
// Returns:
//   - RendererBuilderOption: a function that applies the planner option to a renderer
func WithPlanner(p dispatch.Planner) RendererBuilderOption {
	return func(r *renderer) {
		r.planner = p
	}
}

// WithSpecies sets how many planar species each field buffer holds. Values below 1 are ignored.
//
// Parameters:
//   - n: the species count
//
// Returns:
//   - RendererBuilderOption: a function that applies the species option to a renderer
func WithSpecies(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n >= 1 {
			r.species = n
		}
	}
}
