package dispatch

import "sync"

// GoroutineExecutor runs each task on a new goroutine.
type GoroutineExecutor struct {
	name string
	opts options
	wg   sync.WaitGroup
}

// Goroutines creates an executor that isolates every task on its own goroutine.
func Goroutines(name string, opts ...Option) *GoroutineExecutor {
	return &GoroutineExecutor{name: name, opts: applyOptions(opts)}
}

// Name returns the executor name.
func (e *GoroutineExecutor) Name() string {
	return e.name
}

// Submit starts task on a new goroutine and returns immediately.
func (e *GoroutineExecutor) Submit(task func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		run(e.name, &e.opts, task)
	}()
}

// Async reports true.
func (e *GoroutineExecutor) Async() bool {
	return true
}

// Wait blocks until every submitted task has finished.
func (e *GoroutineExecutor) Wait() {
	e.wg.Wait()
}
