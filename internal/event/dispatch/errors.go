package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running queue.
	ErrAlreadyRunning = errors.New("executor is already running")

	// ErrNotRunning is returned when Stop is called on a queue that is not running.
	ErrNotRunning = errors.New("executor is not running")

	// ErrStopped is returned when Start is called on a queue that was stopped.
	ErrStopped = errors.New("executor has been stopped")
)
