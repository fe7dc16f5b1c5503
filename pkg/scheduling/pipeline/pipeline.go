package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pboueke/pipa/pkg/abort"
	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/metrics"
	"github.com/pboueke/pipa/pkg/monitor"
)

const (
	// DefaultMonitorInterval is how long the wait loop waits for instances
	// to terminate between two snapshots.
	DefaultMonitorInterval = 10 * time.Second

	// DefaultDrainInterval is the wait-loop period once the pipeline is
	// cancelled, so sentinel floods keep up with exiting consumers.
	DefaultDrainInterval = 50 * time.Millisecond
)

// State is the lifecycle phase of a pipeline.
type State int32

const (
	// StateBuilding covers topology validation and construction.
	StateBuilding State = iota
	// StateSpawning covers stage initialization and instance launch.
	StateSpawning
	// StateRunning means instances are running and no stop was decided.
	StateRunning
	// StateDraining means the pipeline is cancelled and instances are
	// exiting.
	StateDraining
	// StateTerminated means every instance exited and buffers are closed.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Result is the outcome of a finished run.
type Result = monitor.Summary

// Pipeline runs a built topology once.
type Pipeline interface {
	// Run initializes every stage, launches all instances and blocks until
	// each of them has exited. Only configuration, initialization and
	// confirmation failures are returned as errors; instance faults are
	// reported in the Result.
	Run(ctx context.Context) (*Result, error)

	// State returns the current lifecycle phase.
	State() State

	// Snapshot returns the current monitoring view without waiting for the
	// wait loop.
	Snapshot() monitor.Snapshot

	// Coordinator returns the run's cancellation coordinator.
	Coordinator() *cancellation.Coordinator
}

// Config holds run-level options. The zero value is usable.
type Config struct {
	// Name labels the run in summaries. Defaults to the topology name.
	Name string

	// RunID identifies the run. A UUID is generated when empty.
	RunID string

	// DefaultCapacity applies to buffers declared without a capacity.
	// Zero means buffer.DefaultCapacity.
	DefaultCapacity int

	// RetryDelay is the pause between attempts on a full output.
	// Zero means stage.DefaultRetryDelay.
	RetryDelay time.Duration

	// MonitorInterval is the wait-loop period while running.
	// Zero means DefaultMonitorInterval.
	MonitorInterval time.Duration

	// DrainInterval is the wait-loop period after cancellation.
	// Zero means DefaultDrainInterval.
	DrainInterval time.Duration

	// IdleTimeout force-stops the run once every buffer has been empty for
	// longer than this. Zero or negative disables it.
	IdleTimeout time.Duration

	// Sink receives snapshots and the final summary. Nil discards them.
	Sink monitor.Sink

	// Abort is polled every wait-loop iteration. Nil never aborts.
	Abort abort.Source

	// ConfirmUnbounded is asked before launching a run that nothing can end
	// on its own: no cancellation-aware instance and no idle timeout.
	// Returning false aborts the run with errors.ErrAborted. Nil proceeds.
	ConfirmUnbounded func() bool

	// Logger receives orchestrator and instance logs. Nil disables logging.
	Logger *zerolog.Logger

	// Metrics instruments the instance worker pool. Nil disables it.
	Metrics *metrics.Registry

	// Clock returns the current time for idle tracking. Nil means time.Now.
	Clock func() time.Time

	// OnInstanceStart is called from the instance goroutine before Run.
	OnInstanceStart func(stage string, instance int)

	// OnInstanceComplete is called from the orchestrator goroutine once an
	// instance has exited.
	OnInstanceComplete func(result monitor.InstanceResult)

	// OnStateChange is called from the orchestrator goroutine on every
	// phase transition.
	OnStateChange func(from, to State)
}

func (c *Config) applyDefaults() {
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = DefaultDrainInterval
	}
	if c.DrainInterval > c.MonitorInterval {
		c.DrainInterval = c.MonitorInterval
	}
	if c.Sink == nil {
		c.Sink = monitor.Nop{}
	}
	if c.Abort == nil {
		c.Abort = abort.Never
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
