/*
Package workerpool provides the fixed-size worker pool that executes
pipeline worker instances.

A worker pool manages a fixed number of worker goroutines that execute
tasks concurrently. The pipeline orchestrator sizes the pool to the total
number of instances so every instance runs on its own goroutine, and reads
Results to learn when each instance has terminated.

Basic usage:

	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount:  4,
		QueueSize:    4,
		ResultBuffer: 4,
	})
	defer pool.Shutdown()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.SubmitWithContext(ctx, task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("Task failed: %v", result.Error)
	}

Panics:

A panicking task never takes its worker down. The panic is recovered and
reported as a result whose Error is a *PanicError carrying the recovered
value and stack.

Results:

A worker blocks delivering a result while the results channel is full, so
no result is lost while the pool is running. Size ResultBuffer to the
number of outstanding tasks when the reader may be slow. After Shutdown,
undelivered results are discarded and the channel is closed once all
workers exit.

Metrics:

Instrument wraps a pool so each execution is recorded in a metrics.Registry
(pool size, active workers, executed and failed tasks, task duration).
Results from an instrumented pool carry wrapped tasks; use Unwrap to get
the submitted task back.
*/
package workerpool
