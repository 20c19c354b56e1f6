package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/statebus/internal/metrics"
)

type queueState int

const (
	queueIdle queueState = iota
	queueRunning
	queueStopped
)

// Queue is a FIFO executor drained by a fixed set of worker goroutines.
// Tasks submitted before Start are kept and run once the queue starts.
type Queue struct {
	name    string
	workers int
	opts    options

	mu      sync.Mutex
	cond    *sync.Cond
	backlog *queue.Queue
	state   queueState
	group   *errgroup.Group

	// Stats
	submitted atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
	rejected  atomic.Uint64
}

// NewSerialQueue creates a queue with exactly one worker.
// Tasks run one at a time in submit order.
func NewSerialQueue(name string, opts ...Option) *Queue {
	return newQueue(name, 1, opts)
}

// NewWorkerPool creates a queue drained by workers goroutines.
// Tasks are dequeued in submit order and may run in parallel.
func NewWorkerPool(name string, workers int, opts ...Option) *Queue {
	if workers < 1 {
		workers = 1
	}
	return newQueue(name, workers, opts)
}

func newQueue(name string, workers int, opts []Option) *Queue {
	q := &Queue{
		name:    name,
		workers: workers,
		opts:    applyOptions(opts),
		backlog: queue.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int {
	return q.workers
}

// Async reports true.
func (q *Queue) Async() bool {
	return true
}

// Start launches the workers.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.state {
	case queueRunning:
		return ErrAlreadyRunning
	case queueStopped:
		return ErrStopped
	}

	q.state = queueRunning
	q.group = new(errgroup.Group)
	for i := 0; i < q.workers; i++ {
		q.group.Go(q.worker)
	}
	return nil
}

// Stop stops accepting tasks and waits until the backlog is drained and the
// workers exit, or until ctx is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.state != queueRunning {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.state = queueStopped
	q.cond.Broadcast()
	group := q.group
	q.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether workers are draining the queue.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == queueRunning
}

// Submit appends task to the backlog. It never blocks. Tasks submitted after
// Stop are rejected and never run.
func (q *Queue) Submit(task func()) {
	q.mu.Lock()
	if q.state == queueStopped {
		q.mu.Unlock()
		q.rejected.Add(1)
		metrics.IncExecutorRejected(q.name)
		q.opts.log().Warn().Str("executor", q.name).Msg("task submitted to stopped queue")
		return
	}
	q.backlog.Add(task)
	q.submitted.Add(1)
	n := q.backlog.Length()
	q.cond.Signal()
	q.mu.Unlock()

	metrics.SetExecutorBacklog(q.name, n)
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.backlog.Length()
}

// worker runs tasks until the queue is stopped and the backlog is empty.
func (q *Queue) worker() error {
	for {
		q.mu.Lock()
		for q.backlog.Length() == 0 && q.state == queueRunning {
			q.cond.Wait()
		}
		if q.backlog.Length() == 0 {
			q.mu.Unlock()
			return nil
		}
		task := q.backlog.Remove().(func())
		n := q.backlog.Length()
		q.mu.Unlock()

		metrics.SetExecutorBacklog(q.name, n)
		if !run(q.name, &q.opts, task) {
			q.panicked.Add(1)
		}
		q.executed.Add(1)
	}
}

// QueueStats contains statistics for a queue.
type QueueStats struct {
	// Submitted is the number of tasks accepted into the backlog.
	Submitted uint64

	// Executed is the number of tasks that have run, including panicked ones.
	Executed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Rejected is the number of tasks refused because the queue was stopped.
	Rejected uint64

	// Backlog is the number of tasks waiting to run.
	Backlog int
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Submitted: q.submitted.Load(),
		Executed:  q.executed.Load(),
		Panicked:  q.panicked.Load(),
		Rejected:  q.rejected.Load(),
		Backlog:   q.Len(),
	}
}
