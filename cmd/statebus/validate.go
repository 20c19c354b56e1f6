package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dshills/statebus/internal/config"
)

// NewValidateCommand checks a configuration file without running a bus.
func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file",
		Action: func(_ context.Context, command *cli.Command) error {
			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			w := command.Root().Writer
			fmt.Fprintf(w, "bus %q, log level %s\n", cfg.Bus.Name, cfg.Log.Level)
			for _, e := range cfg.Executors {
				if e.Kind == config.KindPool {
					fmt.Fprintf(w, "  executor %-12s %s (%d workers)\n", e.Name, e.Kind, e.Workers)
					continue
				}
				fmt.Fprintf(w, "  executor %-12s %s\n", e.Name, e.Kind)
			}
			if cfg.Bus.DefaultExecutor != "" {
				fmt.Fprintf(w, "  default executor: %s\n", cfg.Bus.DefaultExecutor)
			}
			return nil
		},
	}
}
