package stages

import (
	"context"

	"github.com/pboueke/pipa/pkg/ratelimit"
)

// Throttle caps how fast a stage emits records, summed over all of its
// instances. A zero Rate disables it.
type Throttle struct {
	// Rate is the number of records per second.
	Rate float64 `mapstructure:"rate" validate:"gte=0"`

	// Burst is how many records may go out back to back. Zero means 1.
	Burst int `mapstructure:"burst" validate:"gte=0"`

	limiter ratelimit.Limiter
}

func (t *Throttle) init() error {
	t.limiter = nil
	if t.Rate == 0 {
		return nil
	}
	burst := t.Burst
	if burst == 0 {
		burst = 1
	}
	lim, err := ratelimit.New(t.Rate, burst)
	if err != nil {
		return err
	}
	t.limiter = lim
	return nil
}

// wait blocks for a token and reports whether the caller may emit.
func (t *Throttle) wait(ctx context.Context) bool {
	if t.limiter == nil {
		return ctx.Err() == nil
	}
	return t.limiter.Wait(ctx) == nil
}
