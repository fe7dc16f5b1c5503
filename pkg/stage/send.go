package stage

import (
	"time"

	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/streaming/buffer"
)

// SendResult delivers r to each output in order. A full output is retried
// every retryDelay for as long as the pipeline is running; once c reports
// cancellation, SendResult gives up and returns false. Outputs that already
// accepted r keep it, so delivery across outputs is not atomic.
func SendResult(r buffer.Record, outputs []Output, c *cancellation.Coordinator, retryDelay time.Duration) bool {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	for _, out := range outputs {
		for !out.TryPut(r) {
			if !wait(c, retryDelay) {
				return false
			}
		}
	}
	return true
}

// wait sleeps for d, returning early when c is cancelled, and reports
// whether the pipeline is still running.
func wait(c *cancellation.Coordinator, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.Done():
	}
	return !c.IsCancelled()
}
