package workerpool

import (
	"context"
	"time"

	"github.com/pboueke/pipa/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	Pool
	name     string
	registry *metrics.Registry
}

// Instrument wraps pool so that every task execution is recorded in
// registry under name. A nil registry returns pool unchanged.
func Instrument(pool Pool, name string, registry *metrics.Registry) Pool {
	if registry == nil {
		return pool
	}

	mp := &MetricsPool{
		Pool:     pool,
		name:     name,
		registry: registry,
	}
	mp.updateMetrics()
	return mp
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.Pool.Size()))
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.Pool.ActiveWorkers()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext wraps task to record its execution before queuing it.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.Pool.SubmitWithContext(ctx, nil)
	}
	return mp.Pool.SubmitWithContext(ctx, &metricsTask{original: task, pool: mp})
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original Task
	pool     *MetricsPool
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) (err error) {
	start := time.Now()
	returned := false
	mt.pool.updateMetrics()

	// A panic skips the assignment below and is counted as a failure.
	defer func() {
		r := mt.pool.registry
		r.TaskExecutionDuration.WithLabelValues(mt.pool.name).Observe(time.Since(start).Seconds())
		r.TasksExecuted.WithLabelValues(mt.pool.name).Inc()
		if err != nil || !returned {
			r.TasksFailed.WithLabelValues(mt.pool.name).Inc()
		}
		mt.pool.updateMetrics()
	}()

	err = mt.original.Execute(ctx)
	returned = true
	return err
}

// Unwrap returns the task as it was submitted.
func (mt *metricsTask) Unwrap() Task {
	return mt.original
}

// Unwrap returns the innermost task of a possibly wrapped task.
func Unwrap(task Task) Task {
	for {
		w, ok := task.(interface{ Unwrap() Task })
		if !ok {
			return task
		}
		task = w.Unwrap()
	}
}
