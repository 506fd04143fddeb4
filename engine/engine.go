package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/profiler"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
)

// ErrNoSimulation is returned by NewEngine without a simulation.
var ErrNoSimulation = errors.New("engine: simulation is required")

// ErrRenderPanic is returned by Run when the render goroutine panicked.
var ErrRenderPanic = errors.New("engine: render goroutine panicked")

// Surface is the presentation target the engine keeps in step with the window.
// The renderer satisfies it.
type Surface interface {
	// Resize reallocates size-dependent GPU resources.
	Resize(width, height int) error
	// Reconfigure re-creates the swap chain after a lost or outdated surface.
	Reconfigure()
}

// engine implements the Engine interface.
// Coordinates the render goroutine and the window thread.
type engine struct {
	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window  window.Window
	input   *window.InputMapper
	sim     simulation.Simulation
	surface Surface

	// commands carries camera commands from the window thread to the render goroutine.
	commands chan camera.Command
	// tuning carries parameter changes, such as config reloads, to the render goroutine.
	tuning chan func(simulation.Simulation)

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	paused           atomic.Bool

	timestep         float32
	frameLimit       uint64
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frameCallback    func(report simulation.FrameReport, err error)

	frames uint64
}

// Engine drives a Simulation one frame at a time. Window input becomes camera
// commands, applied between frames on the goroutine that owns the simulation.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Submit queues a camera command for the next frame. It never blocks; a command
	// arriving while the queue is full is dropped.
	//
	// Parameters:
	//   - cmd: the camera command
	//
	// Returns:
	//   - bool: true if the command was queued
	Submit(cmd camera.Command) bool

	// Tune queues a function run against the simulation before the next frame.
	// It never blocks.
	//
	// Parameters:
	//   - fn: the change to apply
	//
	// Returns:
	//   - bool: true if the change was queued
	Tune(fn func(simulation.Simulation)) bool

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ToggleProfiler flips profiling output on or off.
	ToggleProfiler()

	// SetPaused freezes simulation time. Frames keep rendering with a zero timestep
	// so the camera stays responsive.
	//
	// Parameters:
	//   - paused: true to freeze time
	SetPaused(paused bool)

	// TogglePause flips the paused state.
	TogglePause()

	// Paused reports whether simulation time is frozen.
	Paused() bool

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetFrameCallback registers a function called after every frame with its report.
	//
	// Parameters:
	//   - callback: function receiving the frame report and the frame's error, if any
	SetFrameCallback(callback func(report simulation.FrameReport, err error))

	// Step drains pending tuning and camera commands, then advances the simulation one frame.
	// Recoverable presentation errors reconfigure the surface and are still returned.
	//
	// Returns:
	//   - simulation.FrameReport: the frame's report
	//   - error: the frame's error, if any
	Step() (simulation.FrameReport, error)

	// Run starts the frame loop and blocks until the window closes, the frame limit is
	// reached, Quit is called, or a frame fails with an unrecoverable error.
	//
	// Returns:
	//   - error: the unrecoverable frame error, or nil on a clean shutdown
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine driving sim.
// The engine defaults to a 1/60 s timestep, or the window's refresh period when a window is set.
//
// Parameters:
//   - sim: the simulation to drive
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrNoSimulation if sim is nil
func NewEngine(sim simulation.Simulation, options ...EngineBuilderOption) (Engine, error) {
	if sim == nil {
		return nil, ErrNoSimulation
	}
	e := &engine{
		quitChannel: make(chan struct{}),
		sim:         sim,
		commands:    make(chan camera.Command, 64),
		tuning:      make(chan func(simulation.Simulation), 8),
		profiler:    profiler.NewProfiler(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.timestep <= 0 {
		e.timestep = 1.0 / 60
		if e.window != nil {
			if hz := e.window.RefreshRate(); hz > 0 {
				e.timestep = 1 / float32(hz)
			}
		}
	}

	if e.window != nil {
		e.input = window.NewInputMapper(e.Submit, window.WithKeyHandler(e.handleKey))
		e.input.Bind(e.window)
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Submit(cmd camera.Command) bool {
	select {
	case e.commands <- cmd:
		return true
	default:
		log.Printf("[Engine] command queue full, dropping %T", cmd)
		return false
	}
}

func (e *engine) Tune(fn func(simulation.Simulation)) bool {
	if fn == nil {
		return false
	}
	select {
	case e.tuning <- fn:
		return true
	default:
		log.Printf("[Engine] tuning queue full, dropping change")
		return false
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) ToggleProfiler() {
	enabled := !e.profilingEnabled.Load()
	e.profilingEnabled.Store(enabled)
	log.Printf("[Engine] profiler enabled: %v", enabled)
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

func (e *engine) TogglePause() {
	paused := !e.paused.Load()
	e.paused.Store(paused)
	log.Printf("[Engine] paused: %v", paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) SetFrameCallback(callback func(report simulation.FrameReport, err error)) {
	e.frameCallback = callback
}

func (e *engine) Step() (simulation.FrameReport, error) {
	e.drain()

	dt := e.timestep
	if e.paused.Load() {
		dt = 0
	}

	report, err := e.sim.Frame(dt)
	e.frames++

	if e.profilingEnabled.Load() && e.profiler != nil {
		g := report.Plan.RaymarchGroups
		e.profiler.Tick(profiler.FrameSample{
			Skipped:        report.Plan.Skip,
			Failed:         err != nil,
			RaymarchGroups: g[0] * g[1] * g[2],
			SimTime:        report.Time,
		})
	}

	if err != nil && simulation.IsRecoverable(err) {
		log.Printf("[Engine] frame %d: %v, reconfiguring surface", report.Frame, err)
		if e.surface != nil {
			e.surface.Reconfigure()
		}
	}

	if e.frameCallback != nil {
		e.frameCallback(report, err)
	}
	return report, err
}

func (e *engine) Run() error {
	if e.window == nil {
		return e.loop()
	}

	errCh := make(chan error, 1)
	e.wg.Add(1)
	go e.handleRender(errCh)

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		default:
		}
	})
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	return <-errCh
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleRender runs the frame loop in its own goroutine and reports its result on errCh.
// A recovered panic signals quit and is reported as ErrRenderPanic.
func (e *engine) handleRender(errCh chan<- error) {
	defer e.wg.Done()
	var err error
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] render goroutine recovered from panic: %v", r)
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
			e.signalQuit()
		}
		errCh <- err
	}()
	err = e.loop()
}

// loop steps the simulation until quit, the frame limit, or an unrecoverable error.
func (e *engine) loop() error {
	defer e.signalQuit()

	for {
		select {
		case <-e.quitChannel:
			return nil
		default:
		}

		start := time.Now()
		if _, err := e.Step(); err != nil && !simulation.IsRecoverable(err) {
			log.Printf("[Engine] stopping: %v", err)
			return err
		}

		if e.frameLimit > 0 && e.frames >= e.frameLimit {
			log.Printf("[Engine] frame limit %d reached", e.frameLimit)
			return nil
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				select {
				case <-e.quitChannel:
					return nil
				case <-time.After(remaining):
				}
			}
		}
	}
}

// drain applies every queued tuning change and camera command without blocking.
// Resize commands also resize the surface.
func (e *engine) drain() {
	for drained := false; !drained; {
		select {
		case fn := <-e.tuning:
			fn(e.sim)
		default:
			drained = true
		}
	}

	for {
		select {
		case cmd := <-e.commands:
			e.sim.Apply(cmd)
			if r, ok := cmd.(camera.Resize); ok && e.surface != nil {
				if err := e.surface.Resize(r.Width, r.Height); err != nil {
					log.Printf("[Engine] resize %dx%d: %v", r.Width, r.Height, err)
				}
			}
		default:
			return
		}
	}
}

// handleKey handles the keys the input mapper forwards.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyP:
		e.ToggleProfiler()
	case common.KeySpace:
		e.TogglePause()
	}
}

// frameDuration converts a frame rate cap into a minimum frame duration. Non-positive rates uncap.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
