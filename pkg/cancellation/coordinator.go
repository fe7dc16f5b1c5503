package cancellation

import (
	"sync"
	"sync/atomic"

	"github.com/pboueke/pipa/pkg/streaming/buffer"
)

// sentinel is the type of the record injected into buffers on shutdown.
// Being unexported, no payload record can ever share it.
type sentinel struct{}

// engineSentinel is the single cancellation sentinel value.
var engineSentinel = &sentinel{}

// Coordinator implements the quorum-based pipeline cancellation protocol.
//
// Each cancellation-aware worker instance is declared once as a required
// stopper before any instance starts. A cooperative stop request increments
// the received count, and the pipeline is cancelled exactly when that count
// reaches the declared quorum. A forced request cancels unconditionally.
// Cancellation is one-way.
type Coordinator struct {
	required  atomic.Int64
	received  atomic.Int64
	forced    atomic.Bool
	cancelled atomic.Bool

	once sync.Once
	done chan struct{}
}

// New creates a coordinator with a quorum of zero.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// DeclareRequiredStopper adds one instance to the quorum. It must be called
// before any instance runs.
func (c *Coordinator) DeclareRequiredStopper() {
	c.required.Add(1)
}

// IsCancelled reports whether the pipeline has been cancelled.
func (c *Coordinator) IsCancelled() bool {
	return c.cancelled.Load()
}

// RequestStop records a stop request. The pipeline is cancelled when the
// post-increment request count equals the quorum, or immediately when force
// is set. Calls after cancellation have no further effect on the state.
func (c *Coordinator) RequestStop(force bool) {
	n := c.received.Add(1)
	if force {
		c.forced.Store(true)
		c.cancel()
		return
	}
	if n == c.required.Load() {
		c.cancel()
	}
}

// IsCancellationSentinel reports whether r is the engine's cancellation
// sentinel. Payload records never match.
func (c *Coordinator) IsCancellationSentinel(r buffer.Record) bool {
	return IsSentinel(r)
}

// Sentinel returns the record injected into buffers during shutdown.
func (c *Coordinator) Sentinel() buffer.Record {
	return engineSentinel
}

// Done returns a channel that is closed when the pipeline is cancelled.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Required returns the declared quorum.
func (c *Coordinator) Required() int {
	return int(c.required.Load())
}

// Received returns the number of stop requests seen so far.
func (c *Coordinator) Received() int {
	return int(c.received.Load())
}

// Forced reports whether any forced request was made.
func (c *Coordinator) Forced() bool {
	return c.forced.Load()
}

func (c *Coordinator) cancel() {
	c.once.Do(func() {
		c.cancelled.Store(true)
		close(c.done)
	})
}

// IsSentinel reports whether r is the cancellation sentinel.
func IsSentinel(r buffer.Record) bool {
	s, ok := r.(*sentinel)
	return ok && s == engineSentinel
}
