package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Executor kinds.
const (
	KindImmediate = "immediate"
	KindGoroutine = "goroutine"
	KindSerial    = "serial"
	KindPool      = "pool"
)

// defaultPoolWorkers is used for pools that do not set workers.
const defaultPoolWorkers = 4

// Config is the root configuration.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Bus       BusConfig        `yaml:"bus"`
	Executors []ExecutorConfig `yaml:"executors"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level"`
}

// BusConfig configures the bus.
type BusConfig struct {
	Name string `yaml:"name"`

	// DefaultExecutor names the executor used when neither subscriber nor
	// publisher prefers one. Empty means synchronous delivery.
	DefaultExecutor string `yaml:"default_executor"`
}

// ExecutorConfig declares one named executor.
type ExecutorConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Workers is the parallelism of a pool. Ignored by other kinds.
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Bus: BusConfig{Name: "statebus"},
	}
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Bus.Name == "" {
		c.Bus.Name = def.Bus.Name
	}
	for i := range c.Executors {
		e := &c.Executors[i]
		e.Kind = strings.ToLower(strings.TrimSpace(e.Kind))
		if e.Kind == KindPool && e.Workers == 0 {
			e.Workers = defaultPoolWorkers
		}
	}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q: %w", c.Log.Level, err))
	}
	if strings.TrimSpace(c.Bus.Name) == "" {
		errs = append(errs, errors.New("bus.name must not be empty"))
	}

	seen := make(map[string]bool, len(c.Executors))
	for i, e := range c.Executors {
		switch {
		case e.Name == "":
			errs = append(errs, fmt.Errorf("executors[%d]: name must not be empty", i))
		case seen[e.Name]:
			errs = append(errs, fmt.Errorf("executors[%d]: duplicate name %q", i, e.Name))
		}
		seen[e.Name] = true

		switch e.Kind {
		case KindImmediate, KindGoroutine, KindSerial:
		case KindPool:
			if e.Workers < 1 {
				errs = append(errs, fmt.Errorf("executors[%d]: pool %q needs at least one worker", i, e.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("executors[%d]: unknown kind %q", i, e.Kind))
		}
	}

	if name := c.Bus.DefaultExecutor; name != "" && !seen[name] {
		errs = append(errs, fmt.Errorf("bus.default_executor %q: %w", name, ErrUnknownExecutor))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
