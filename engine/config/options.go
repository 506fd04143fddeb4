package config

import (
	"errors"
	"log"
	"math"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-voxel/engine"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
)

// WindowOptions builds the window from the window section.
func (c *Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithWidth(c.Window.Width),
		window.WithHeight(c.Window.Height),
		window.WithLockAspect(c.Window.LockAspect),
	}
}

// CameraOptions builds the camera from the camera section and the window size.
func (c *Config) CameraOptions() []camera.CameraBuilderOption {
	cam := c.Camera
	return []camera.CameraBuilderOption{
		camera.WithPosition(cam.Distance, 0, 0),
		camera.WithViewport(c.Window.Width, c.Window.Height),
		camera.WithReferenceFov(cam.FovDegrees * math.Pi / 180),
		camera.WithScrollSensitivity(cam.ScrollSensitivity),
		camera.WithRotationSensitivity(cam.RotationSensitivity, cam.RotationSensitivity),
		camera.WithPanSensitivity(cam.PanSensitivity),
		camera.WithRadiusBounds(cam.RadiusMin, cam.RadiusMax),
	}
}

// PlannerOptions fixes the seed when one is configured.
func (c *Config) PlannerOptions() []dispatch.PlannerBuilderOption {
	if c.Simulation.Seed == 0 {
		return nil
	}
	return []dispatch.PlannerBuilderOption{dispatch.WithSeed(c.Simulation.Seed)}
}

// SimulationOptions builds the frame orchestrator's tuning from the grid and simulation sections.
func (c *Config) SimulationOptions() []simulation.SimulationBuilderOption {
	return []simulation.SimulationBuilderOption{
		simulation.WithSpecies(c.Grid.Species),
		simulation.WithMaxTimestep(c.Simulation.MaxTimestep),
		simulation.WithBaseCoefficient(c.Simulation.Coefficient),
		simulation.WithReferenceTemperature(c.Simulation.Temperature),
		simulation.WithPlannerOptions(c.PlannerOptions()...),
	}
}

// FieldOptions builds the CPU diffusion field. A nil pool steps serially.
//
// Parameters:
//   - pool: the worker pool for the diffusion step, or nil
//
// Returns:
//   - []voxel.DiffusionFieldOption: the field options
func (c *Config) FieldOptions(pool worker.DynamicWorkerPool) []voxel.DiffusionFieldOption {
	opts := []voxel.DiffusionFieldOption{
		voxel.WithSpecies(c.Grid.Species),
		voxel.WithMaxTimestep(c.Simulation.MaxTimestep),
		voxel.WithBaseCoefficient(c.Simulation.Coefficient),
		voxel.WithReferenceTemperature(c.Simulation.Temperature),
		voxel.WithInsideScale(c.Simulation.InsideScale),
	}
	if pool != nil {
		opts = append(opts, voxel.WithWorkerPool(pool, c.Simulation.Workers))
	}
	return opts
}

// SnapshotOptions builds the snapshot presenter from the snapshot section.
func (c *Config) SnapshotOptions() []simulation.SnapshotOption {
	return []simulation.SnapshotOption{
		simulation.WithEvery(c.Snapshot.Every),
		simulation.WithGamma(c.Snapshot.Gamma),
		simulation.WithScale(c.Snapshot.Scale),
	}
}

// EngineOptions builds the engine from the engine section.
func (c *Config) EngineOptions() []engine.EngineBuilderOption {
	return []engine.EngineBuilderOption{
		engine.WithProfiling(c.Engine.Profiler),
		engine.WithFrameLimit(c.Engine.FrameLimit),
		engine.WithRenderFrameLimit(c.Engine.FPSCap),
	}
}

// Apply pushes the settings that can change at runtime into a running simulation:
// camera sensitivities, the timestep cap and the diffusion coefficient.
// Grid shape, species and window settings need a restart.
//
// Parameters:
//   - sim: the simulation to tune
//
// Returns:
//   - error: every rejected setting, joined
func (c *Config) Apply(sim simulation.Simulation) error {
	cam := c.Camera
	sim.Camera().SetSensitivity(cam.ScrollSensitivity, cam.RotationSensitivity, cam.RotationSensitivity, cam.PanSensitivity)

	err := errors.Join(
		sim.SetMaxTimestep(c.Simulation.MaxTimestep),
		sim.SetBaseCoefficient(c.Simulation.Coefficient),
	)
	if err != nil {
		log.Printf("[Config] apply: %v", err)
	}
	return err
}
