package event

import (
	"github.com/dshills/statebus/internal/event/identity"
)

// Event declares a fire-and-forget channel carrying messages of type M.
// A message reaches only the subscriptions active when it is published.
//
// Event is an immutable value; copies address the same channel.
// The zero Event is not declared and should not be used.
type Event[M any] struct {
	label string
	id    identity.ID
}

// NewEvent declares an event with a fresh static identity. Only this value
// and its copies address the channel.
func NewEvent[M any](label string) Event[M] {
	return Event[M]{label: label, id: identity.New()}
}

// NewKeyedEvent declares an event whose identity is derived from label and
// the key fields of key, so that independently constructed descriptors with
// equal keys address the same channel. See package identity for how key
// fields are selected. It panics if key cannot be encoded deterministically.
func NewKeyedEvent[M any](label string, key any) Event[M] {
	return Event[M]{label: label, id: identity.MustDerive(label, key)}
}

// Label returns the event label.
func (e Event[M]) Label() string {
	return e.label
}

// ID returns the event identity.
func (e Event[M]) ID() identity.ID {
	return e.id
}

func (e Event[M]) key() channelKey {
	return keyOf[M](e.id)
}

// Publish delivers msg to every subscription of this event active on b at
// the time of the call. A nil bus addresses Default. Publishing with no
// subscribers is a no-op.
func (e Event[M]) Publish(b *Bus, msg M, opts ...DeliveryOption) {
	resolve(b).publish(e.key(), e.label, msg, newDeliveryConfig(opts))
}

// Subscribe registers handler for this event on b. A nil bus addresses
// Default. It panics with ErrNilHandler if handler is nil.
func (e Event[M]) Subscribe(b *Bus, handler func(msg M), opts ...DeliveryOption) *Subscription {
	if handler == nil {
		panic(ErrNilHandler)
	}
	b = resolve(b)

	sub := newSubscription(b, e.key(), e.label, kindEvent, func(v any) {
		if msg, ok := v.(M); ok {
			handler(msg)
		}
	}, newDeliveryConfig(opts))
	b.register(sub, false)
	return sub
}

// Signal declares an event without payload.
type Signal struct {
	event Event[struct{}]
}

// NewSignal declares a signal with a fresh static identity.
func NewSignal(label string) Signal {
	return Signal{event: NewEvent[struct{}](label)}
}

// NewKeyedSignal declares a signal whose identity is derived from label and key.
func NewKeyedSignal(label string, key any) Signal {
	return Signal{event: NewKeyedEvent[struct{}](label, key)}
}

// Label returns the signal label.
func (s Signal) Label() string {
	return s.event.Label()
}

// ID returns the signal identity.
func (s Signal) ID() identity.ID {
	return s.event.ID()
}

// Fire notifies every subscription of this signal active on b.
func (s Signal) Fire(b *Bus, opts ...DeliveryOption) {
	s.event.Publish(b, struct{}{}, opts...)
}

// Subscribe registers handler for this signal on b.
// It panics with ErrNilHandler if handler is nil.
func (s Signal) Subscribe(b *Bus, handler func(), opts ...DeliveryOption) *Subscription {
	if handler == nil {
		panic(ErrNilHandler)
	}
	return s.event.Subscribe(b, func(struct{}) { handler() }, opts...)
}
