// Package dispatch provides the executors that run subscriber handlers.
//
// An Executor accepts a task and runs it either on the submitting goroutine
// or later on goroutines it owns. The bus never runs a handler itself; it
// resolves an executor per delivery with Select and submits one task per
// subscriber.
//
// # Executors
//
// Four implementations are provided:
//
//   - Immediate: runs the task on the caller's goroutine before Submit
//     returns. Used when neither subscriber nor publisher states a preference.
//
//   - Goroutines: starts one goroutine per task. Tasks are unordered.
//
//   - SerialQueue: a FIFO queue drained by exactly one worker. Tasks run one at
//     a time, in submit order.
//
//   - WorkerPool: a FIFO queue drained by a fixed number of workers. Tasks are
//     dequeued in submit order but may run in parallel.
//
// Queues keep an unbounded backlog: Submit never blocks and never drops a task
// while the queue accepts work.
//
// # Selection
//
// Select resolves the executor for one delivery. A subscriber preference wins
// over a publisher preference, which wins over Immediate:
//
//	exec := dispatch.Select(sub.Executor(), publishPreference)
//	exec.Submit(task)
//
// # Panic Isolation
//
// Every executor runs each task inside its own recover boundary. A panicking
// handler is logged with its stack, counted, and reported to the optional
// PanicHandler; it never prevents sibling tasks from running and never
// unwinds into the bus.
//
// # Usage
//
//	ui := dispatch.NewSerialQueue("ui")
//	if err := ui.Start(); err != nil {
//	    return err
//	}
//	defer ui.Stop(context.Background())
//
//	ui.Submit(func() { render() })
package dispatch
