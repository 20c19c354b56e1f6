package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/statebus/internal/event/dispatch"
)

// Executors holds the executors declared by a configuration.
type Executors struct {
	byName   map[string]dispatch.Executor
	queues   []*dispatch.Queue
	spawners []*dispatch.GoroutineExecutor
	fallback string
}

// BuildExecutors creates and starts the executors declared in c.
// On error, executors already started are stopped again.
func (c Config) BuildExecutors(opts ...dispatch.Option) (*Executors, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ex := &Executors{
		byName:   make(map[string]dispatch.Executor, len(c.Executors)),
		fallback: c.Bus.DefaultExecutor,
	}
	for _, ec := range c.Executors {
		switch ec.Kind {
		case KindImmediate:
			ex.byName[ec.Name] = dispatch.NewImmediate(opts...)
		case KindGoroutine:
			g := dispatch.Goroutines(ec.Name, opts...)
			ex.spawners = append(ex.spawners, g)
			ex.byName[ec.Name] = g
		case KindSerial, KindPool:
			var q *dispatch.Queue
			if ec.Kind == KindSerial {
				q = dispatch.NewSerialQueue(ec.Name, opts...)
			} else {
				q = dispatch.NewWorkerPool(ec.Name, ec.Workers, opts...)
			}
			if err := q.Start(); err != nil {
				_ = ex.Stop(context.Background())
				return nil, fmt.Errorf("starting executor %q: %w", ec.Name, err)
			}
			ex.queues = append(ex.queues, q)
			ex.byName[ec.Name] = q
		}
	}
	return ex, nil
}

// Get returns the executor declared under name.
func (ex *Executors) Get(name string) (dispatch.Executor, error) {
	e, ok := ex.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, name)
	}
	return e, nil
}

// Default returns the bus default executor, or nil if none is configured.
func (ex *Executors) Default() dispatch.Executor {
	if ex.fallback == "" {
		return nil
	}
	return ex.byName[ex.fallback]
}

// Len returns the number of declared executors.
func (ex *Executors) Len() int {
	return len(ex.byName)
}

// Stop drains every queue and waits for spawned goroutines.
func (ex *Executors) Stop(ctx context.Context) error {
	var errs []error
	for _, q := range ex.queues {
		if err := q.Stop(ctx); err != nil && !errors.Is(err, dispatch.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("stopping executor %q: %w", q.Name(), err))
		}
	}
	for _, g := range ex.spawners {
		g.Wait()
	}
	return errors.Join(errs...)
}
