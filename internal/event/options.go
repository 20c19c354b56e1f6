package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/statebus/internal/event/dispatch"
)

// BusOption configures a Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for a bus.
type busConfig struct {
	// locker serializes registry and state bookkeeping.
	locker sync.Locker

	// executor is the publisher preference used when a publish names none.
	executor dispatch.Executor

	logger *zerolog.Logger
	tracer trace.Tracer
}

// WithLocker sets the serialization mechanism guarding the registry and the
// state store. The default is a mutex owned by the bus.
func WithLocker(l sync.Locker) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.locker = l
		}
	}
}

// WithDefaultExecutor sets the executor used for deliveries when neither the
// subscriber nor the publisher states a preference. Without it such
// deliveries run synchronously.
func WithDefaultExecutor(e dispatch.Executor) BusOption {
	return func(c *busConfig) {
		c.executor = e
	}
}

// WithLogger sets the bus logger.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = &l
	}
}

// WithTracer sets the tracer used for publish and set spans.
func WithTracer(t trace.Tracer) BusOption {
	return func(c *busConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// DeliveryOption configures one subscribe, publish or set call.
type DeliveryOption func(*deliveryConfig)

// deliveryConfig contains per-call delivery preferences.
type deliveryConfig struct {
	// executor is the subscriber or publisher preference; nil means none.
	executor dispatch.Executor

	// once makes a subscription unsubscribe itself after its first delivery.
	once bool

	// ctx parents the publish or set span.
	ctx context.Context
}

func newDeliveryConfig(opts []DeliveryOption) deliveryConfig {
	var c deliveryConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c
}

// WithExecutor sets the executor preference. On Subscribe it is the
// subscriber preference and always wins; on Publish or Set it applies to
// subscribers that have none.
func WithExecutor(e dispatch.Executor) DeliveryOption {
	return func(c *deliveryConfig) {
		c.executor = e
	}
}

// WithOnce makes a subscription unsubscribe itself after its first delivery.
// It has no effect on Publish or Set.
func WithOnce() DeliveryOption {
	return func(c *deliveryConfig) {
		c.once = true
	}
}

// WithContext sets the parent context of the publish or set span.
func WithContext(ctx context.Context) DeliveryOption {
	return func(c *deliveryConfig) {
		c.ctx = ctx
	}
}
