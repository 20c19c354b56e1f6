package event

import "errors"

// ErrNilHandler is the panic value used when a nil handler is subscribed.
var ErrNilHandler = errors.New("event: handler cannot be nil")
