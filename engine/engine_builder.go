package engine

import (
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithWindow runs the engine against a window: its input drives the camera and
// Run pumps its message loop.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithSurface sets the surface resized on Resize commands and reconfigured after
// lost or outdated presentation.
//
// Parameters:
//   - s: the presentation surface, usually the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurface(s Surface) EngineBuilderOption {
	return func(e *engine) {
		e.surface = s
	}
}

// WithTimestep fixes the timestep passed to every frame, in seconds.
// Values <= 0 keep the default.
//
// Parameters:
//   - dt: seconds per frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTimestep(dt float32) EngineBuilderOption {
	return func(e *engine) {
		if dt > 0 {
			e.timestep = dt
		}
	}
}

// WithFrameLimit stops Run after n frames. 0 runs until quit.
//
// Parameters:
//   - n: the number of frames to run
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameLimit(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = n
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithCommandBuffer sets how many camera commands may queue between frames.
// Values < 1 are ignored.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCommandBuffer(n int) EngineBuilderOption {
	return func(e *engine) {
		if n >= 1 {
			e.commands = make(chan camera.Command, n)
		}
	}
}
