package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/statebus/internal/event/dispatch"
	"github.com/dshills/statebus/internal/event/identity"
	"github.com/dshills/statebus/internal/log"
	"github.com/dshills/statebus/internal/metrics"
)

const tracerName = "github.com/dshills/statebus/internal/event"

// Bus routes event messages and state values to subscribers.
// One bus is one isolation domain: descriptors address channels per bus.
type Bus struct {
	name string

	// mu serializes every registry and store access.
	mu       sync.Locker
	registry *registry
	store    *stateStore

	// removals holds unsubscribed ids until the next bookkeeping pass.
	removalMu sync.Mutex
	removals  []identity.ID

	executor dispatch.Executor
	logger   zerolog.Logger
	tracer   trace.Tracer

	// Stats
	published  atomic.Uint64
	statesSet  atomic.Uint64
	suppressed atomic.Uint64
	delivered  atomic.Uint64
	replayed   atomic.Uint64
}

// NewBus creates a bus with the given name and options.
func NewBus(name string, opts ...BusOption) *Bus {
	var config busConfig
	for _, opt := range opts {
		opt(&config)
	}
	if config.locker == nil {
		config.locker = &sync.Mutex{}
	}
	if config.tracer == nil {
		config.tracer = otel.Tracer(tracerName)
	}

	logger := log.WithComponent("event")
	if config.logger != nil {
		logger = *config.logger
	}

	return &Bus{
		name:     name,
		mu:       config.locker,
		registry: newRegistry(),
		store:    newStateStore(),
		executor: config.executor,
		logger:   logger.With().Str("bus", name).Logger(),
		tracer:   config.tracer,
	}
}

// Name returns the bus name.
func (b *Bus) Name() string {
	return b.name
}

// Unsubscribe stops deliveries to the given subscriptions. Each subscription
// is marked pending at once and removed from the registry on the next
// bookkeeping pass. Nil subscriptions, subscriptions of other buses and
// repeated calls are ignored.
func (b *Bus) Unsubscribe(subs ...*Subscription) {
	for _, sub := range subs {
		if sub == nil || sub.bus != b {
			continue
		}
		if !sub.markPending() {
			continue
		}
		b.scheduleRemoval(sub)
		b.logger.Debug().
			Str("label", sub.label).
			Str("subscription", sub.id.String()).
			Msg("unsubscribed")
	}
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	var n int
	b.pass(func(*batch) {
		n = b.registry.countActive()
	})
	return n
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	var subs, states int
	b.pass(func(*batch) {
		subs = b.registry.countActive()
		states = b.store.len()
	})
	return Stats{
		Published:     b.published.Load(),
		StatesSet:     b.statesSet.Load(),
		Suppressed:    b.suppressed.Load(),
		Delivered:     b.delivered.Load(),
		Replayed:      b.replayed.Load(),
		Subscriptions: subs,
		States:        states,
	}
}

// delivery is one handler task bound to its resolved executor.
type delivery struct {
	executor dispatch.Executor
	task     func()
}

// batch collects the synchronous deliveries of one bookkeeping pass.
type batch struct {
	inline []delivery
}

// deliver hands a task to an asynchronous executor immediately, so queue
// order follows the bus order, and defers synchronous executors until the
// bus lock is released so handlers may call back into the bus.
func (out *batch) deliver(exec dispatch.Executor, task func()) {
	if dispatch.IsAsync(exec) {
		exec.Submit(task)
		return
	}
	out.inline = append(out.inline, delivery{executor: exec, task: task})
}

// deliverLatest is deliver for a state value committed as seq of cell. Run
// after the lock is released, a synchronous delivery is dropped once a newer
// commit exists, whose own delivery follows, so a subscriber never ends on a
// stale value. Asynchronous executors receive every commit in bus order.
func (out *batch) deliverLatest(exec dispatch.Executor, task func(), cell *stateCell, seq uint64) {
	if dispatch.IsAsync(exec) {
		exec.Submit(task)
		return
	}
	out.inline = append(out.inline, delivery{executor: exec, task: func() {
		if !cell.latest(seq) {
			return
		}
		task()
	}})
}

// pass runs fn as one unit of bookkeeping under the bus lock, after applying
// pending removals. Synchronous deliveries collected by fn run in order once
// the lock is released.
func (b *Bus) pass(fn func(out *batch)) {
	var out batch
	func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.sweepLocked()
		fn(&out)
	}()

	for _, d := range out.inline {
		d.executor.Submit(d.task)
	}
}

// scheduleRemoval queues a pending subscription for removal.
// It never takes the bus lock, so handlers may unsubscribe mid-dispatch.
func (b *Bus) scheduleRemoval(sub *Subscription) {
	b.removalMu.Lock()
	b.removals = append(b.removals, sub.id)
	b.removalMu.Unlock()
}

// sweepLocked removes subscriptions queued by scheduleRemoval.
func (b *Bus) sweepLocked() {
	b.removalMu.Lock()
	ids := b.removals
	b.removals = nil
	b.removalMu.Unlock()

	if len(ids) == 0 {
		return
	}
	if b.registry.remove(ids...) > 0 {
		metrics.SetSubscriptions(b.name, b.registry.len())
	}
}

// executorFor resolves the executor for one delivery to sub.
func (b *Bus) executorFor(sub *Subscription, cfg deliveryConfig) dispatch.Executor {
	publisher := cfg.executor
	if publisher == nil {
		publisher = b.executor
	}
	return dispatch.Select(sub.executor, publisher)
}

// register adds sub to the registry. For state subscriptions the stored
// value, if any, is replayed within the same pass.
func (b *Bus) register(sub *Subscription, replay bool) {
	b.pass(func(out *batch) {
		b.registry.add(sub)
		metrics.SetSubscriptions(b.name, b.registry.len())

		if !replay {
			return
		}
		cell, seq, ok := b.store.cell(sub.key)
		if !ok {
			return
		}
		out.deliverLatest(b.executorFor(sub, deliveryConfig{}), sub.task(cell.value), cell, seq)
		b.replayed.Add(1)
		metrics.AddDeliveries(b.name, kindState, 1)
	})

	b.logger.Debug().
		Str("label", sub.label).
		Str("kind", sub.kind).
		Str("subscription", sub.id.String()).
		Msg("subscribed")
}

// publish delivers value to the channel's active subscribers as of now.
func (b *Bus) publish(key channelKey, label string, value any, cfg deliveryConfig) {
	_, span := b.startSpan(cfg.ctx, "statebus.publish", label)
	defer span.End()

	var n int
	b.pass(func(out *batch) {
		subs := b.registry.snapshotMatching(key)
		n = len(subs)
		for _, sub := range subs {
			out.deliver(b.executorFor(sub, cfg), sub.task(value))
		}
	})

	b.published.Add(1)
	b.delivered.Add(uint64(n))
	metrics.IncPublished(b.name, kindEvent)
	metrics.AddDeliveries(b.name, kindEvent, n)
	span.SetAttributes(attribute.Int("statebus.subscribers", n))
}

// setAndNotify stores value for key unless equal reports it matches the
// stored value. The commit and the submission of asynchronous deliveries
// happen within one pass.
func (b *Bus) setAndNotify(key channelKey, label string, value any, equal func(stored any) bool, cfg deliveryConfig) {
	_, span := b.startSpan(cfg.ctx, "statebus.set", label)
	defer span.End()

	var (
		changed bool
		n       int
	)
	b.pass(func(out *batch) {
		if stored, ok := b.store.get(key); ok && equal(stored) {
			return
		}
		changed = true

		cell, seq := b.store.put(key, value)
		subs := b.registry.snapshotMatching(key)
		n = len(subs)
		for _, sub := range subs {
			out.deliverLatest(b.executorFor(sub, cfg), sub.task(value), cell, seq)
		}
	})

	span.SetAttributes(attribute.Bool("statebus.changed", changed))
	if !changed {
		b.suppressed.Add(1)
		metrics.IncStateSuppressed(b.name)
		b.logger.Debug().Str("label", label).Msg("state unchanged, notification suppressed")
		return
	}

	b.statesSet.Add(1)
	b.delivered.Add(uint64(n))
	metrics.IncPublished(b.name, kindState)
	metrics.AddDeliveries(b.name, kindState, n)
	span.SetAttributes(attribute.Int("statebus.subscribers", n))
}

// load returns the stored value for key.
func (b *Bus) load(key channelKey) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.get(key)
}

// contains reports whether a value is stored for key.
func (b *Bus) contains(key channelKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.has(key)
}

func (b *Bus) startSpan(ctx context.Context, name, label string) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("statebus.bus", b.name),
		attribute.String("statebus.label", label),
	))
}
