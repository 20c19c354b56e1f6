package event

import (
	"sync/atomic"

	"github.com/dshills/statebus/internal/event/identity"
)

// State declares a last-value-cached channel carrying values of type V.
//
// A bus stores at most one current value per state. Set notifies subscribers
// only when the state had no value or the new value differs from the stored
// one; Subscribe replays the stored value to the new subscriber.
//
// V must be comparable with ==. Interface types whose dynamic values are not
// comparable make Set panic.
type State[V comparable] struct {
	label string
	id    identity.ID
}

// NewState declares a state with a fresh static identity.
func NewState[V comparable](label string) State[V] {
	return State[V]{label: label, id: identity.New()}
}

// NewKeyedState declares a state whose identity is derived from label and
// the key fields of key. It panics if key cannot be encoded deterministically.
func NewKeyedState[V comparable](label string, key any) State[V] {
	return State[V]{label: label, id: identity.MustDerive(label, key)}
}

// Label returns the state label.
func (s State[V]) Label() string {
	return s.label
}

// ID returns the state identity.
func (s State[V]) ID() identity.ID {
	return s.id
}

func (s State[V]) key() channelKey {
	return keyOf[V](s.id)
}

// Set stores value on b and notifies the active subscribers, unless value
// equals the stored value, in which case nothing happens.
// A nil bus addresses Default.
func (s State[V]) Set(b *Bus, value V, opts ...DeliveryOption) {
	resolve(b).setAndNotify(s.key(), s.label, value, func(stored any) bool {
		old, ok := stored.(V)
		return ok && old == value
	}, newDeliveryConfig(opts))
}

// Get returns the value stored on b, if any.
func (s State[V]) Get(b *Bus) (V, bool) {
	v, ok := resolve(b).load(s.key())
	if !ok {
		var zero V
		return zero, false
	}
	value, ok := v.(V)
	return value, ok
}

// Has reports whether b stores a value for this state.
func (s State[V]) Has(b *Bus) bool {
	return resolve(b).contains(s.key())
}

// Subscribe registers handler for this state on b. If b stores a value, the
// handler receives it as part of registration; with a synchronous executor
// that happens before Subscribe returns.
// It panics with ErrNilHandler if handler is nil.
func (s State[V]) Subscribe(b *Bus, handler func(value V), opts ...DeliveryOption) *Subscription {
	if handler == nil {
		panic(ErrNilHandler)
	}
	b = resolve(b)

	sub := newSubscription(b, s.key(), s.label, kindState, func(v any) {
		if value, ok := v.(V); ok {
			handler(value)
		}
	}, newDeliveryConfig(opts))
	b.register(sub, true)
	return sub
}

// stateStore holds the last value per state channel.
// Callers hold the owning bus lock.
type stateStore struct {
	cells map[channelKey]*stateCell
}

// stateCell is the stored value of one state channel. seq counts commits and
// may be read without the bus lock.
type stateCell struct {
	value any
	seq   atomic.Uint64
}

// latest reports whether seq is still the newest commit of the cell.
func (c *stateCell) latest(seq uint64) bool {
	return c.seq.Load() == seq
}

func newStateStore() *stateStore {
	return &stateStore{cells: make(map[channelKey]*stateCell)}
}

func (s *stateStore) has(key channelKey) bool {
	_, ok := s.cells[key]
	return ok
}

func (s *stateStore) get(key channelKey) (any, bool) {
	c, ok := s.cells[key]
	if !ok {
		return nil, false
	}
	return c.value, true
}

// cell returns the cell of key and its current commit number.
func (s *stateStore) cell(key channelKey) (*stateCell, uint64, bool) {
	c, ok := s.cells[key]
	if !ok {
		return nil, 0, false
	}
	return c, c.seq.Load(), true
}

// put commits value and returns the cell with its new commit number.
func (s *stateStore) put(key channelKey, value any) (*stateCell, uint64) {
	c, ok := s.cells[key]
	if !ok {
		c = &stateCell{}
		s.cells[key] = c
	}
	c.value = value
	return c, c.seq.Add(1)
}

func (s *stateStore) len() int {
	return len(s.cells)
}
