package monitor

import (
	"time"
)

// InstanceStatus is the lifecycle state of one worker instance.
type InstanceStatus int

const (
	// StatusCreated means the instance was scheduled but has not started.
	StatusCreated InstanceStatus = iota
	// StatusRunning means the instance's Run is executing.
	StatusRunning
	// StatusCompleted means Run returned without error.
	StatusCompleted
	// StatusFaulted means Run returned an error or panicked.
	StatusFaulted
)

func (s InstanceStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminated reports whether the instance has finished.
func (s InstanceStatus) Terminated() bool {
	return s == StatusCompleted || s == StatusFaulted
}

// Cause names why a run ended.
type Cause string

const (
	// CauseNone means every instance exited without the pipeline being
	// cancelled.
	CauseNone Cause = "none"
	// CauseQuorum means every required stopper requested a stop.
	CauseQuorum Cause = "quorum"
	// CauseAbort means the operator aborted the run.
	CauseAbort Cause = "abort"
	// CauseIdleTimeout means all buffers stayed empty past the idle timeout.
	CauseIdleTimeout Cause = "idle_timeout"
	// CauseInterrupted means the run context ended.
	CauseInterrupted Cause = "interrupted"
	// CauseForced means a stage forced a stop.
	CauseForced Cause = "forced"
)

// BufferSnapshot is the state of one buffer at snapshot time.
type BufferSnapshot struct {
	Name               string
	Count              int
	Capacity           int
	Consumers          int
	Producers          int
	Utilization        float64
	AverageUtilization float64
	Puts               int64
	RejectedPuts       int64
	Takes              int64
	SentinelsInjected  int64
}

// StageSnapshot holds the status of every instance of one stage.
type StageSnapshot struct {
	Name      string
	Type      string
	Instances []InstanceStatus
}

// Count returns how many instances are in status s.
func (s StageSnapshot) Count(status InstanceStatus) int {
	n := 0
	for _, st := range s.Instances {
		if st == status {
			n++
		}
	}
	return n
}

// Snapshot is a point-in-time view of a running pipeline.
type Snapshot struct {
	RunID     string
	Sequence  int
	Time      time.Time
	Elapsed   time.Duration
	Buffers   []BufferSnapshot
	Stages    []StageSnapshot
	Required  int
	Received  int
	Cancelled bool
	Forced    bool
}

// InstanceResult is the final outcome of one worker instance.
type InstanceResult struct {
	Stage    string
	Instance int
	Status   InstanceStatus
	Err      error
	Duration time.Duration
}

// BufferSummary is the final usage of one buffer.
type BufferSummary struct {
	Name               string
	Capacity           int
	AverageUtilization float64
	Puts               int64
	Takes              int64
	Remaining          int
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Topology  string
	Started   time.Time
	Finished  time.Time
	Duration  time.Duration
	Cause     Cause
	Required  int
	Received  int
	Buffers   []BufferSummary
	Instances []InstanceResult
}

// Faulted returns the instances that ended in StatusFaulted.
func (s *Summary) Faulted() []InstanceResult {
	var out []InstanceResult
	for _, r := range s.Instances {
		if r.Status == StatusFaulted {
			out = append(out, r)
		}
	}
	return out
}

// Sink receives monitoring data from the orchestrator. Observe is called
// once per wait-loop iteration and Summarize once at the end of the run,
// both from the orchestrator's goroutine.
type Sink interface {
	Observe(s Snapshot)
	Summarize(s Summary)
}

// Multi fans out to several sinks in order.
type Multi []Sink

// NewMulti returns a sink that forwards to every non-nil sink.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) Observe(s Snapshot) {
	for _, sink := range m {
		sink.Observe(s)
	}
}

func (m Multi) Summarize(s Summary) {
	for _, sink := range m {
		sink.Summarize(s)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Observe(Snapshot)   {}
func (Nop) Summarize(Summary) {}
