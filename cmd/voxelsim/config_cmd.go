package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/engine/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective config (the defaults unless --config is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := config.Format(format)
			if f != config.FormatTOML && f != config.FormatYAML {
				return fmt.Errorf("%w: %q, want toml or yaml", config.ErrUnknownFormat, format)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "output format: toml or yaml")
	return cmd
}
