package event

import (
	"sync/atomic"

	"github.com/dshills/statebus/internal/event/dispatch"
	"github.com/dshills/statebus/internal/event/identity"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus int32

const (
	// StatusActive means the subscription receives deliveries.
	StatusActive SubscriptionStatus = iota

	// StatusPending means the subscription was unsubscribed. It receives no
	// further handler calls and is removed on the next registry pass.
	StatusPending
)

// String returns a human-readable status name.
func (s SubscriptionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPending:
		return "unsubscribe-pending"
	default:
		return "unknown"
	}
}

// Subscription is a live registration of a handler on a bus.
// Its identity is independent of the descriptor it matches.
type Subscription struct {
	id       identity.ID
	bus      *Bus
	key      channelKey
	label    string
	kind     string
	executor dispatch.Executor
	once     bool
	deliver  func(value any)
	status   atomic.Int32
}

func newSubscription(b *Bus, key channelKey, label, kind string, deliver func(any), cfg deliveryConfig) *Subscription {
	s := &Subscription{
		id:       identity.New(),
		bus:      b,
		key:      key,
		label:    label,
		kind:     kind,
		executor: cfg.executor,
		once:     cfg.once,
		deliver:  deliver,
	}
	s.status.Store(int32(StatusActive))
	return s
}

// ID returns the unique subscription id.
func (s *Subscription) ID() identity.ID {
	return s.id
}

// Label returns the label of the subscribed descriptor.
func (s *Subscription) Label() string {
	return s.label
}

// Bus returns the bus the subscription belongs to.
func (s *Subscription) Bus() *Bus {
	return s.bus
}

// Executor returns the subscriber's executor preference, or nil.
func (s *Subscription) Executor() dispatch.Executor {
	return s.executor
}

// Status returns the current status.
func (s *Subscription) Status() SubscriptionStatus {
	return SubscriptionStatus(s.status.Load())
}

// IsActive returns true until the subscription is unsubscribed.
func (s *Subscription) IsActive() bool {
	return s.Status() == StatusActive
}

// Unsubscribe stops deliveries to this subscription. It is idempotent and
// safe to call from within the subscription's own handler.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Unsubscribe(s)
}

// markPending moves the subscription to StatusPending.
// It reports whether this call made the transition.
func (s *Subscription) markPending() bool {
	return s.status.CompareAndSwap(int32(StatusActive), int32(StatusPending))
}

// task wraps one delivery of value. The status flag is checked when the task
// runs, so a delivery queued before an unsubscribe never reaches the handler.
func (s *Subscription) task(value any) func() {
	return func() {
		if s.once {
			if !s.markPending() {
				return
			}
			s.bus.scheduleRemoval(s)
		} else if !s.IsActive() {
			return
		}
		s.deliver(value)
	}
}
