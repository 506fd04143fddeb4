// Command voxelsim runs the voxel diffusion simulation in a window on the GPU,
// or headless on the CPU writing PNG snapshots.
package main

import (
	"context"
	"log"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-voxel/engine"
	"github.com/Carmen-Shannon/oxy-voxel/engine/config"
	"github.com/Carmen-Shannon/oxy-voxel/engine/simulation"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW and the wgpu surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	watch      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "voxelsim",
		Short:        "Raymarched voxel diffusion simulation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&opts.watch, "watch", "w", false, "reload tuning from the config file when it changes")

	root.AddCommand(
		newRunCommand(opts),
		newHeadlessCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// load returns the config at the --config path, or the defaults.
func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// watchConfig forwards each reload to the engine as a tuning change until ctx is done.
func (o *rootOptions) watchConfig(ctx context.Context, eng engine.Engine) {
	if !o.watch || o.configPath == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, o.configPath, func(c *config.Config) {
			eng.Tune(func(sim simulation.Simulation) {
				_ = c.Apply(sim)
			})
		})
		if err != nil {
			log.Printf("[Config] %v", err)
		}
	}()
}
