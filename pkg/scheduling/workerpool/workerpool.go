package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdown is returned by Submit after Shutdown was called.
var ErrShutdown = errors.New("worker pool has been shut down")

// Task is a unit of work executed by one worker.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a function to a Task.
type TaskFunc func(ctx context.Context) error

// Execute calls f.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result reports a finished task.
type Result struct {
	// Task is the task as it was queued.
	Task Task

	// Error is the task's error, or a *PanicError if it panicked.
	Error error

	// Duration is how long Execute ran.
	Duration time.Duration

	// WorkerID identifies the worker that ran the task.
	WorkerID int
}

// Panicked reports whether the task panicked.
func (r Result) Panicked() bool {
	var perr *PanicError
	return errors.As(r.Error, &perr)
}

// PanicError reports a task that panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Pool executes tasks on a fixed set of goroutines.
type Pool interface {
	// Submit queues task with a background context.
	Submit(task Task) error

	// SubmitWithContext queues task. ctx bounds the wait for queue space and
	// is the context passed to Execute.
	SubmitWithContext(ctx context.Context, task Task) error

	// Results delivers one Result per executed task. It is closed once
	// Shutdown completes.
	Results() <-chan Result

	// Shutdown stops accepting tasks and lets idle workers exit; running
	// tasks finish. The returned channel closes when every worker exited.
	Shutdown() <-chan struct{}

	// Size returns the number of workers.
	Size() int

	// Pending returns the number of queued tasks not yet picked up.
	Pending() int

	// ActiveWorkers returns the number of workers running a task.
	ActiveWorkers() int

	// TotalSubmitted returns how many tasks were accepted.
	TotalSubmitted() int64

	// TotalCompleted returns how many tasks finished, including failures.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers. Must be positive.
	WorkerCount int

	// QueueSize is the number of tasks that can wait for a worker.
	// Zero means Submit blocks until a worker takes the task.
	QueueSize int

	// ResultBuffer is the capacity of the results channel. A worker blocks
	// delivering a result while it is full, unless the pool is shutting down.
	ResultBuffer int
}

type queued struct {
	task Task
	ctx  context.Context
}

type workerPool struct {
	size    int
	tasks   chan queued
	results chan Result

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup

	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
}

// New creates a pool of workerCount workers and a queue of queueSize.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{WorkerCount: workerCount, QueueSize: queueSize})
}

// NewWithConfig creates a pool and starts its workers. It panics on a
// non-positive worker count or negative sizes.
func NewWithConfig(config Config) Pool {
	switch {
	case config.WorkerCount <= 0:
		panic("worker count must be positive")
	case config.QueueSize < 0:
		panic("queue size must be >= 0")
	case config.ResultBuffer < 0:
		panic("result buffer must be >= 0")
	}

	p := &workerPool{
		size:    config.WorkerCount,
		tasks:   make(chan queued, config.QueueSize),
		results: make(chan Result, config.ResultBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.wg.Add(config.WorkerCount)
	for id := 0; id < config.WorkerCount; id++ {
		go p.work(id)
	}
	return p
}

func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Checked first so a closed pool or a dead context never races a free
	// queue slot.
	select {
	case <-p.stop:
		return ErrShutdown
	default:
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submit task: %w", err)
	}

	select {
	case p.tasks <- queued{task: task, ctx: ctx}:
		p.submitted.Add(1)
		return nil
	case <-p.stop:
		return ErrShutdown
	case <-ctx.Done():
		return fmt.Errorf("submit task: %w", ctx.Err())
	}
}

func (p *workerPool) Results() <-chan Result {
	return p.results
}

func (p *workerPool) Shutdown() <-chan struct{} {
	p.stopOnce.Do(func() {
		close(p.stop)
		go func() {
			p.wg.Wait()
			close(p.results)
			close(p.done)
		}()
	})
	return p.done
}

func (p *workerPool) Size() int {
	return p.size
}

func (p *workerPool) Pending() int {
	return len(p.tasks)
}

func (p *workerPool) ActiveWorkers() int {
	return int(p.active.Load())
}

func (p *workerPool) TotalSubmitted() int64 {
	return p.submitted.Load()
}

func (p *workerPool) TotalCompleted() int64 {
	return p.completed.Load()
}

func (p *workerPool) work(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case q := <-p.tasks:
			res := p.execute(id, q)
			select {
			case p.results <- res:
			case <-p.stop:
			}
		}
	}
}

func (p *workerPool) execute(id int, q queued) (res Result) {
	p.active.Add(1)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Error = &PanicError{Value: r, Stack: debug.Stack()}
		}
		res.Task = q.task
		res.Duration = time.Since(start)
		res.WorkerID = id
		p.active.Add(-1)
		p.completed.Add(1)
	}()

	res.Error = q.task.Execute(q.ctx)
	return res
}
