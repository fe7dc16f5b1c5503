package stage

import (
	"context"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/streaming/buffer"
)

// DefaultRetryDelay is how long SendResult waits between attempts to put a
// record into a full output.
const DefaultRetryDelay = time.Second

// Capabilities are the static properties a stage declares to the
// orchestrator.
type Capabilities struct {
	// AllowsMultipleInstances permits running more than one concurrent
	// instance. When false the configured instance count is forced to 1.
	AllowsMultipleInstances bool

	// RequiresCancellationAwareness makes every instance of the stage a
	// required stopper: the pipeline ends cooperatively only once each of
	// them has called RequestStop(false).
	RequiresCancellationAwareness bool
}

// Stage is a unit of user logic run by one or more worker instances.
//
// Initialize is called exactly once per stage, before any instance runs.
// Run is called once per instance and may run concurrently with other
// instances of the same stage, so any state shared between instances must
// be immutable after Initialize. Per-instance counters belong in Run.
//
// A Run loop must follow the cancellation contract:
//
//	for rec := range env.Input {
//		if env.Coordinator.IsCancelled() {
//			return nil
//		}
//		if env.Coordinator.IsCancellationSentinel(rec) {
//			continue
//		}
//		// process rec, deliver with env.Send
//	}
//
// A stage calls env.Coordinator.RequestStop(false) when its own termination
// condition is met and never forces a stop.
type Stage interface {
	// Capabilities returns the stage's static capabilities.
	Capabilities() Capabilities

	// Initialize configures the stage from its topology settings.
	// An error aborts the whole run before any instance is spawned.
	Initialize(settings Settings) error

	// Run executes one instance. ctx is cancelled when the pipeline is
	// cancelled or the run is interrupted.
	Run(ctx context.Context, env *Env) error
}

// Factory creates a fresh, uninitialized stage.
type Factory func() Stage

// Output is the write side of a buffer as seen by a stage.
type Output interface {
	// Name returns the buffer name.
	Name() string

	// TryPut enqueues r without blocking and reports whether it was accepted.
	TryPut(r buffer.Record) bool
}

// Env is everything an instance needs at run time.
type Env struct {
	// Stage is the name of the stage this instance belongs to.
	Stage string

	// Instance is the zero-based index of this instance within its stage.
	Instance int

	// Input is the sequence of records from the stage's input buffer, or nil
	// for a stage without input.
	Input iter.Seq[buffer.Record]

	// Outputs are the stage's output buffers in topology order.
	Outputs []Output

	// Coordinator is the run's shared cancellation coordinator.
	Coordinator *cancellation.Coordinator

	// Logger is scoped to this stage and instance.
	Logger zerolog.Logger

	// RetryDelay is the pause between attempts on a full output.
	RetryDelay time.Duration
}

// Send delivers r to every output with backpressure. It returns false when
// the pipeline was cancelled before delivery completed.
func (e *Env) Send(r buffer.Record) bool {
	return SendResult(r, e.Outputs, e.Coordinator, e.RetryDelay)
}

// Stopped reports whether the pipeline has been cancelled.
func (e *Env) Stopped() bool {
	return e.Coordinator.IsCancelled()
}
