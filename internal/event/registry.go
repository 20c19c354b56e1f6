package event

import (
	"github.com/dshills/statebus/internal/event/identity"
)

// registry maps subscription ids to subscriptions and groups them by channel.
// It is not safe for concurrent use: every method is called with the owning
// bus lock held.
type registry struct {
	byKey map[channelKey][]*Subscription
	byID  map[identity.ID]*Subscription
}

func newRegistry() *registry {
	return &registry{
		byKey: make(map[channelKey][]*Subscription),
		byID:  make(map[identity.ID]*Subscription),
	}
}

// add inserts a subscription. Subscriptions of one channel keep
// registration order.
func (r *registry) add(sub *Subscription) {
	r.byKey[sub.key] = append(r.byKey[sub.key], sub)
	r.byID[sub.id] = sub
}

// remove deletes subscriptions by id. Unknown ids are ignored.
// It returns the number of subscriptions removed.
func (r *registry) remove(ids ...identity.ID) int {
	removed := 0
	for _, id := range ids {
		sub, ok := r.byID[id]
		if !ok {
			continue
		}
		delete(r.byID, id)
		removed++

		subs := r.byKey[sub.key]
		for i, s := range subs {
			if s == sub {
				subs = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(subs) == 0 {
			delete(r.byKey, sub.key)
		} else {
			r.byKey[sub.key] = subs
		}
	}
	return removed
}

// snapshotMatching returns the active subscriptions of a channel as of now.
// The returned slice is owned by the caller.
func (r *registry) snapshotMatching(key channelKey) []*Subscription {
	subs := r.byKey[key]
	if len(subs) == 0 {
		return nil
	}

	result := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive() {
			result = append(result, sub)
		}
	}
	return result
}

// len returns the number of registered subscriptions, pending ones included.
func (r *registry) len() int {
	return len(r.byID)
}

// countActive returns the number of active subscriptions.
func (r *registry) countActive() int {
	n := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			n++
		}
	}
	return n
}
