package event

import "sync"

// Group tracks subscriptions owned by one component so they can be
// cancelled together when the component shuts down.
type Group struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewGroup creates an empty subscription group.
func NewGroup() *Group {
	return &Group{}
}

// Add tracks subs in the group. Nil subscriptions are ignored.
// Subscriptions added after Close are unsubscribed immediately.
func (g *Group) Add(subs ...*Subscription) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return
	}
	for _, sub := range subs {
		if sub != nil {
			g.subs = append(g.subs, sub)
		}
	}
	g.mu.Unlock()
}

// UnsubscribeAll cancels every tracked subscription. The group stays usable.
func (g *Group) UnsubscribeAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Close cancels every tracked subscription and makes later Adds
// unsubscribe at once. Close is idempotent.
func (g *Group) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.UnsubscribeAll()
	return nil
}

// Count returns the number of tracked subscriptions still active.
func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int
	for _, sub := range g.subs {
		if sub.IsActive() {
			n++
		}
	}
	return n
}

// IsClosed returns true if the group has been closed.
func (g *Group) IsClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
