package event

import (
	"reflect"

	"github.com/dshills/statebus/internal/event/identity"
)

// Kinds label metrics, logs and spans.
const (
	kindEvent = "event"
	kindState = "state"
)

// channelKey addresses one logical channel: a descriptor identity plus the
// payload type it carries. Descriptors that share an identity but carry
// different payload types never see each other's values.
type channelKey struct {
	id  identity.ID
	typ reflect.Type
}

func keyOf[T any](id identity.ID) channelKey {
	return channelKey{id: id, typ: reflect.TypeFor[T]()}
}

// Stats contains bus statistics.
type Stats struct {
	// Published is the number of event publishes.
	Published uint64

	// StatesSet is the number of state sets that changed the stored value.
	StatesSet uint64

	// Suppressed is the number of state sets ignored because the value was unchanged.
	Suppressed uint64

	// Delivered is the number of handler deliveries scheduled, replays excluded.
	Delivered uint64

	// Replayed is the number of stored values replayed to new state subscribers.
	Replayed uint64

	// Subscriptions is the number of active subscriptions.
	Subscriptions int

	// States is the number of states holding a value.
	States int
}
