package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-voxel/engine"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/config"
	"github.com/Carmen-Shannon/oxy-voxel/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/Carmen-Shannon/oxy-voxel/engine/window"
	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var software bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window and run the simulation on the GPU",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runWindowed(cmd.Context(), opts, cfg, software)
		},
	}
	cmd.Flags().BoolVar(&software, "software", false, "force the fallback (software) adapter")
	return cmd
}

func runWindowed(ctx context.Context, opts *rootOptions, cfg *config.Config, software bool) error {
	dims, err := cfg.Dims()
	if err != nil {
		return err
	}
	planner, err := dispatch.NewPlanner(dims, cfg.PlannerOptions()...)
	if err != nil {
		return err
	}

	// ── Window ──────────────────────────────────────────────────────
	w := window.NewWindow(cfg.WindowOptions()...)
	defer func() {
		if err := w.Close(); err != nil {
			log.Printf("[Window] close: %v", err)
		}
	}()

	// ── Renderer ────────────────────────────────────────────────────
	presentMode := renderer.PresentModeVSync
	if cfg.Window.PresentMode == config.PresentUncapped {
		presentMode = renderer.PresentModeUncapped
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, w, dims,
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(software),
		renderer.WithPlanner(planner),
		renderer.WithSpecies(cfg.Grid.Species),
	)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer r.Release()

	// ── Simulation ──────────────────────────────────────────────────
	camOpts := append(cfg.CameraOptions(), camera.WithViewport(w.Width(), w.Height()))
	simOpts := append(cfg.SimulationOptions(),
		simulation.WithPlanner(planner),
		simulation.WithPresenter(r),
	)
	sim, err := simulation.NewSimulation(camera.NewCamera(camOpts...), dims, r, simOpts...)
	if err != nil {
		return err
	}

	// ── Engine ──────────────────────────────────────────────────────
	engOpts := append(cfg.EngineOptions(),
		engine.WithWindow(w),
		engine.WithSurface(r),
	)
	eng, err := engine.NewEngine(sim, engOpts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts.watchConfig(ctx, eng)

	log.Printf("[Engine] running %dx%dx%d grid, %d species (R resets the camera, P toggles the profiler, Space pauses)",
		dims.I, dims.J, dims.K, cfg.Grid.Species)
	return eng.Run()
}
