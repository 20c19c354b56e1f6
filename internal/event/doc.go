// Package event provides an in-process publish/subscribe bus with two
// addressing disciplines.
//
// # Events and States
//
//   - Event: fire-and-forget. A message reaches only the subscriptions active
//     when it is published. Nothing is retained.
//   - State: last-value cache. The bus stores the current value; setting an
//     equal value again notifies nobody, and a new subscriber immediately
//     receives the stored value.
//
// Both are declared as immutable descriptors and used against a Bus:
//
//	var greeting = event.NewEvent[string]("greeting")
//	var status = event.NewState[string]("status")
//
//	bus := event.NewBus("app")
//
//	sub := greeting.Subscribe(bus, func(msg string) {
//	    fmt.Println("got", msg)
//	})
//	defer sub.Unsubscribe()
//
//	greeting.Publish(bus, "Hello!")
//
//	status.Set(bus, "online")
//	status.Set(bus, "online") // suppressed: value unchanged
//	v, ok := status.Get(bus)
//
// # Identity
//
// NewEvent and NewState assign a random identity: only the declared value and
// its copies address the channel. NewKeyedEvent and NewKeyedState derive the
// identity from the label and the key fields of a key value, so separately
// constructed descriptors with equal keys address the same channel:
//
//	type Room struct {
//	    ID   int `key:"id"`
//	    Name string
//	}
//
//	a := event.NewKeyedEvent[string]("chat.message", Room{ID: 1, Name: "x"})
//	b := event.NewKeyedEvent[string]("chat.message", Room{ID: 1, Name: "y"})
//	// a and b address the same channel
//
// # Executors
//
// Handlers run on an executor from package dispatch, resolved per delivery:
// the subscriber preference (WithExecutor on Subscribe) wins over the
// publisher preference (WithExecutor on Publish or Set, then the bus default
// from WithDefaultExecutor); without either the handler runs synchronously on
// the publishing goroutine before Publish returns.
//
//	ui := dispatch.NewSerialQueue("ui")
//	ui.Start()
//	status.Subscribe(bus, render, event.WithExecutor(ui))
//
// # Concurrency
//
// All registry and state store access is serialized by one lock per bus
// (WithLocker replaces it). Handlers never run while that lock is held:
// deliveries to asynchronous executors are submitted inside the critical
// section, so their queue order matches the bus order, and synchronous
// deliveries run right after it is released. Handlers may therefore publish,
// set, subscribe, unsubscribe and read state on the same bus.
//
// A publish snapshots the matching subscriptions once; subscriptions added
// afterwards do not receive it. A subscriber racing a Set either receives the
// new value through the notification or through the replay, never both and
// never neither.
//
// Unsubscribe marks the subscription pending and queues its removal for the
// next bookkeeping pass. The pending flag is checked immediately before each
// handler call, so deliveries still waiting on an executor are dropped. A
// call that already passed the check is not interrupted.
//
// Within a Set, a handler that reads the same state observes the new value
// (or a later one).
//
// Each commit to a state is numbered. A synchronous state delivery, whether a
// notification or a replay, is skipped when a newer commit of that state
// exists by the time it runs, since the newer commit delivers its own value.
// Two racing Sets therefore never leave a synchronous subscriber on the older
// value. Asynchronous executors receive every commit in commit order.
//
// # Handler Faults
//
// The bus does not recover handler panics itself. Every executor in package
// dispatch runs each delivery in its own recover boundary, logs the panic and
// carries on, so a failing handler neither corrupts the bus nor stops its
// siblings. Custom executors must provide their own policy.
//
// # Groups and Filters
//
// A Group collects the subscriptions of one component so Close can cancel
// them together. Filtered narrows a handler to the messages a Predicate
// accepts.
//
// # Default Bus
//
// Default returns a process-wide bus created on first use. Passing a nil
// *Bus to descriptor methods addresses it.
package event
