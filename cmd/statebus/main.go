// Package main is the entry point for the statebus demo command.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "statebus",
		Usage:                 "Run and inspect an in-process event and state bus",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("STATEBUS_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
			NewVersionCommand(),
		},
	}
}

// NewVersionCommand prints build information.
func NewVersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, command *cli.Command) error {
			fmt.Fprintf(command.Root().Writer, "statebus %s\nCommit: %s\nBuilt: %s\n", version, commit, date)
			return nil
		},
	}
}
