package event

import "sync"

// DefaultBusName is the name of the process-wide bus.
const DefaultBusName = "default"

var defaultBus = sync.OnceValue(func() *Bus {
	return NewBus(DefaultBusName)
})

// Default returns the process-wide bus. It is created on first use and
// lives until the process exits. Tests should prefer their own buses.
func Default() *Bus {
	return defaultBus()
}

func resolve(b *Bus) *Bus {
	if b == nil {
		return Default()
	}
	return b
}
