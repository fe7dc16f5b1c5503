package metrics

import (
	"sync"

	"github.com/pboueke/pipa/pkg/monitor"
)

var instanceStatuses = []monitor.InstanceStatus{
	monitor.StatusCreated,
	monitor.StatusRunning,
	monitor.StatusCompleted,
	monitor.StatusFaulted,
}

// Sink exports monitoring snapshots as Prometheus metrics.
type Sink struct {
	registry *Registry

	mu    sync.Mutex
	runID string
	last  map[string]bufferCounters
}

type bufferCounters struct {
	puts      int64
	rejected  int64
	sentinels int64
}

// NewSink creates a sink recording into r. A nil r uses DefaultRegistry.
func NewSink(r *Registry) *Sink {
	if r == nil {
		r = DefaultRegistry
	}
	return &Sink{registry: r, last: make(map[string]bufferCounters)}
}

// Observe updates gauges from s and advances counters by the difference
// from the previous snapshot of the same run.
func (s *Sink) Observe(snap monitor.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.RunID != s.runID {
		s.runID = snap.RunID
		clear(s.last)
	}

	r := s.registry
	for _, b := range snap.Buffers {
		r.BufferOccupancy.WithLabelValues(b.Name).Set(float64(b.Count))
		r.BufferCapacity.WithLabelValues(b.Name).Set(float64(b.Capacity))
		r.BufferConsumers.WithLabelValues(b.Name).Set(float64(b.Consumers))
		r.BufferProducers.WithLabelValues(b.Name).Set(float64(b.Producers))
		r.BufferAverageUtilization.WithLabelValues(b.Name).Set(b.AverageUtilization)

		prev := s.last[b.Name]
		addDelta(r.BufferPuts.WithLabelValues(b.Name), prev.puts, b.Puts)
		addDelta(r.BufferRejectedPuts.WithLabelValues(b.Name), prev.rejected, b.RejectedPuts)
		addDelta(r.BufferSentinels.WithLabelValues(b.Name), prev.sentinels, b.SentinelsInjected)
		s.last[b.Name] = bufferCounters{puts: b.Puts, rejected: b.RejectedPuts, sentinels: b.SentinelsInjected}
	}

	for _, st := range snap.Stages {
		for _, status := range instanceStatuses {
			r.Instances.WithLabelValues(st.Name, status.String()).Set(float64(st.Count(status)))
		}
	}

	r.StopsRequired.Set(float64(snap.Required))
	r.StopsReceived.Set(float64(snap.Received))
	if snap.Cancelled {
		r.Cancelled.Set(1)
	} else {
		r.Cancelled.Set(0)
	}
}

// Summarize records the finished run.
func (s *Sink) Summarize(sum monitor.Summary) {
	r := s.registry
	r.RunsTotal.WithLabelValues(string(sum.Cause)).Inc()
	r.RunDuration.Observe(sum.Duration.Seconds())
	for _, f := range sum.Faulted() {
		r.FaultedTotal.WithLabelValues(f.Stage).Inc()
	}
	for _, b := range sum.Buffers {
		r.BufferAverageUtilization.WithLabelValues(b.Name).Set(b.AverageUtilization)
	}
}

type adder interface {
	Add(float64)
}

func addDelta(c adder, prev, cur int64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
