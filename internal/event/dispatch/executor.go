package dispatch

import (
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/dshills/statebus/internal/log"
	"github.com/dshills/statebus/internal/metrics"
)

// Executor runs units of work.
type Executor interface {
	// Submit runs task, either before returning or later.
	Submit(task func())
}

// asyncExecutor is implemented by executors that never run a task on the
// submitting goroutine.
type asyncExecutor interface {
	Async() bool
}

// IsAsync reports whether e is known to defer every task to another
// goroutine. Executors that do not say so are treated as synchronous.
func IsAsync(e Executor) bool {
	a, ok := e.(asyncExecutor)
	return ok && a.Async()
}

// Select resolves the executor for one delivery: the subscriber preference
// if set, else the publisher preference if set, else Immediate.
func Select(subscriber, publisher Executor) Executor {
	if subscriber != nil {
		return subscriber
	}
	if publisher != nil {
		return publisher
	}
	return Immediate()
}

// PanicHandler is called when a task panics. It receives the executor name,
// the value passed to panic, and the stack trace.
type PanicHandler func(executor string, recovered any, stack []byte)

// Option configures an executor.
type Option func(*options)

type options struct {
	panicHandler PanicHandler
	logger       *zerolog.Logger
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPanicHandler sets a callback for recovered task panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(o *options) {
		o.panicHandler = h
	}
}

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// log returns the configured logger. The package logger is looked up on use
// so that executors created at init time follow later log configuration.
func (o *options) log() *zerolog.Logger {
	if o.logger != nil {
		return o.logger
	}
	l := log.WithComponent("dispatch")
	return &l
}

// run executes task inside a recover boundary.
// It reports whether the task completed without panicking.
func run(name string, o *options, task func()) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		stack := debug.Stack()

		metrics.IncHandlerPanic(name)
		o.log().Error().
			Str("executor", name).
			Interface("panic", r).
			Bytes("stack", stack).
			Msg("handler panicked")

		if o.panicHandler != nil {
			func() {
				// A failing panic handler must not take the worker down.
				defer func() { _ = recover() }()
				o.panicHandler(name, r, stack)
			}()
		}
	}()

	task()
	return true
}
