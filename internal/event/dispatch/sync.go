package dispatch

// immediateName labels the default synchronous executor in logs and metrics.
const immediateName = "immediate"

var defaultImmediate = NewImmediate()

// ImmediateExecutor runs each task on the submitting goroutine.
type ImmediateExecutor struct {
	opts options
}

// Immediate returns the shared synchronous executor.
func Immediate() *ImmediateExecutor {
	return defaultImmediate
}

// NewImmediate creates a synchronous executor with its own options.
func NewImmediate(opts ...Option) *ImmediateExecutor {
	return &ImmediateExecutor{opts: applyOptions(opts)}
}

// Submit runs task before returning. A panic in task is recovered.
func (e *ImmediateExecutor) Submit(task func()) {
	run(immediateName, &e.opts, task)
}

// Async reports false: tasks run on the caller's goroutine.
func (e *ImmediateExecutor) Async() bool {
	return false
}
