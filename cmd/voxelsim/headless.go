package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-voxel/engine"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
	"github.com/Carmen-Shannon/oxy-voxel/engine/config"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/Carmen-Shannon/oxy-voxel/engine/voxel"
	"github.com/spf13/cobra"
)

type headlessOptions struct {
	frames   uint64
	out      string
	timestep float32
}

func newHeadlessCommand(opts *rootOptions) *cobra.Command {
	h := &headlessOptions{}
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run the simulation on the CPU and write PNG snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Engine.FrameLimit = h.frames
			}
			if cmd.Flags().Changed("out") {
				cfg.Snapshot.Dir = h.out
			}
			return runHeadless(cmd.Context(), opts, cfg, h.timestep)
		},
	}
	cmd.Flags().Uint64VarP(&h.frames, "frames", "n", 100, "frames to run (0 runs until interrupted)")
	cmd.Flags().StringVarP(&h.out, "out", "o", "", "snapshot directory (overrides the config)")
	cmd.Flags().Float32Var(&h.timestep, "dt", 1.0/60, "seconds per frame")
	return cmd
}

// headlessFrames applies the default frame count when neither flag nor config set one.
func headlessFrames(cfg *config.Config) uint64 {
	if cfg.Engine.FrameLimit == 0 {
		return 100
	}
	return cfg.Engine.FrameLimit
}

func runHeadless(ctx context.Context, opts *rootOptions, cfg *config.Config, dt float32) error {
	dims, err := cfg.Dims()
	if err != nil {
		return err
	}

	pool := worker.NewDynamicWorkerPool(cfg.Simulation.Workers, 256, 1*time.Second)
	defer pool.Stop()

	field, err := voxel.NewDiffusionField(dims, cfg.FieldOptions(pool)...)
	if err != nil {
		return err
	}
	stage := simulation.NewCPUStage(field, simulation.WithConcurrency(cfg.Simulation.Workers))
	presenter, err := simulation.NewSnapshotPresenter(cfg.Snapshot.Dir, stage.Image, cfg.SnapshotOptions()...)
	if err != nil {
		return err
	}

	sim, err := simulation.NewSimulation(camera.NewCamera(cfg.CameraOptions()...), dims, stage,
		append(cfg.SimulationOptions(), simulation.WithPresenter(presenter))...)
	if err != nil {
		return err
	}

	engOpts := append(cfg.EngineOptions(),
		engine.WithFrameLimit(headlessFrames(cfg)),
		engine.WithTimestep(dt),
	)
	eng, err := engine.NewEngine(sim, engOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		eng.Quit()
	}()
	opts.watchConfig(ctx, eng)

	log.Printf("[Engine] headless %dx%dx%d grid, %d workers, snapshots in %s",
		dims.I, dims.J, dims.K, cfg.Simulation.Workers, cfg.Snapshot.Dir)
	if err := eng.Run(); err != nil {
		return err
	}
	log.Printf("[Engine] finished %d frames, simulated %.3fs", sim.FrameCount(), sim.Time())
	return nil
}
