package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	cli "github.com/urfave/cli/v3"

	"github.com/dshills/statebus/internal/config"
	"github.com/dshills/statebus/internal/event"
	"github.com/dshills/statebus/internal/event/dispatch"
	"github.com/dshills/statebus/internal/log"
)

// NewRunCommand builds a bus from configuration and drives a demo workload.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a bus with a demo workload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides the configuration",
				Sources: cli.EnvVars("STATEBUS_LOG_LEVEL"),
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "How long to run the workload (0 runs until interrupted)",
				Value: 5 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Pause between workload rounds",
				Value: 250 * time.Millisecond,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload the configuration file when it changes",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.String("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			overrides := flagOverrides(command)
			overrides(&cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Configure(log.Config{Level: cfg.Log.Level})
			logger := log.WithComponent("cmd")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if d := command.Duration("duration"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			executors, err := cfg.BuildExecutors(dispatch.WithPanicHandler(func(executor string, recovered any, _ []byte) {
				logger.Warn().Str("executor", executor).Interface("panic", recovered).Msg("handler fault isolated")
			}))
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := executors.Stop(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("failed to stop executors")
				}
			}()

			bus := event.NewBus(cfg.Bus.Name, event.WithDefaultExecutor(executors.Default()))

			holder := config.NewHolder(cfg, path, bus, config.WithOverrides(overrides))
			config.LogLevel.Subscribe(bus, func(level string) {
				if err := log.SetLevel(level); err != nil {
					logger.Error().Err(err).Str("level", level).Msg("ignoring log level")
				}
			})
			if command.Bool("watch") {
				if err := holder.Watch(ctx); err != nil {
					return err
				}
				defer holder.Close()
			}

			if addr := command.String("metrics-addr"); addr != "" {
				srv := serveMetrics(addr, logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			logger.Info().
				Str("bus", bus.Name()).
				Int("executors", executors.Len()).
				Msg("bus started")

			w := newWorkload(bus, executors, logger)
			defer w.close()
			w.run(ctx, command.Duration("interval"))

			stats := bus.Stats()
			logger.Info().
				Uint64("published", stats.Published).
				Uint64("states_set", stats.StatesSet).
				Uint64("suppressed", stats.Suppressed).
				Uint64("delivered", stats.Delivered).
				Uint64("replayed", stats.Replayed).
				Int("subscriptions", stats.Subscriptions).
				Msg("bus stopped")

			fmt.Fprintf(command.Root().Writer,
				"published=%d states_set=%d suppressed=%d delivered=%d replayed=%d\n",
				stats.Published, stats.StatesSet, stats.Suppressed, stats.Delivered, stats.Replayed)
			return nil
		},
	}
}

// flagOverrides returns the configuration settings given as flags, applied
// at startup and again on every reload.
func flagOverrides(command *cli.Command) func(*config.Config) {
	level := command.String("log-level")
	return func(cfg *config.Config) {
		if level != "" {
			cfg.Log.Level = level
		}
	}
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
