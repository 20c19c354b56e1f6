package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"

	"github.com/dshills/statebus/internal/config"
	"github.com/dshills/statebus/internal/event"
)

const testConfig = `
bus:
  name: cli
executors:
  - name: ui
    kind: serial
  - name: background
    kind: pool
    workers: 2
`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.Writer = &out
	require.NoError(t, cmd.Run(context.Background(), append([]string{"statebus"}, args...)))
	return out.String()
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	out := runCLI(t, "--config", path, "validate")
	assert.Contains(t, out, `bus "cli"`)
	assert.Contains(t, out, "pool (2 workers)")
}

func TestVersionCommand(t *testing.T) {
	out := runCLI(t, "version")
	assert.Contains(t, out, "statebus dev")
}

func TestRunCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	out := runCLI(t, "--config", path, "run", "--duration", "50ms", "--interval", "5ms", "--log-level", "error")
	assert.Contains(t, out, "published=")
}

func TestWorkload_Round(t *testing.T) {
	cfg := config.Default()
	executors, err := cfg.BuildExecutors()
	require.NoError(t, err)

	b := event.NewBus("workload")
	w := newWorkload(b, executors, zerolog.Nop())

	for n := 1; n <= 7; n++ {
		w.round(context.Background(), n)
	}

	stats := b.Stats()
	// Seven rounds: round always changes, phase changes twice.
	assert.Equal(t, uint64(9), stats.StatesSet)
	assert.Equal(t, uint64(5), stats.Suppressed)
	assert.Equal(t, uint64(3*7), stats.Published)

	w.close()
	assert.Equal(t, 0, b.SubscriptionCount())
	require.NoError(t, executors.Stop(context.Background()))
}

func TestFlagOverrides(t *testing.T) {
	var overrides func(*config.Config)
	cmd := &cli.Command{
		Name:  "run",
		Flags: []cli.Flag{&cli.StringFlag{Name: "log-level"}},
		Action: func(_ context.Context, command *cli.Command) error {
			overrides = flagOverrides(command)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), []string{"run", "--log-level", "warn"}))

	// Applied again to a freshly loaded configuration, as on reload.
	cfg := config.Default()
	cfg.Log.Level = "debug"
	overrides(&cfg)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestFlagOverrides_Unset(t *testing.T) {
	var overrides func(*config.Config)
	cmd := &cli.Command{
		Name:  "run",
		Flags: []cli.Flag{&cli.StringFlag{Name: "log-level"}},
		Action: func(_ context.Context, command *cli.Command) error {
			overrides = flagOverrides(command)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), []string{"run"}))

	cfg := config.Default()
	cfg.Log.Level = "debug"
	overrides(&cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
}
