package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
)

// Limiter is a token bucket.
type Limiter interface {
	// Allow takes a token if one is available now. It does not block.
	Allow() bool

	// Wait blocks until a token is available. It returns ctx.Err() if the
	// context ends first, and the reserved token is returned to the bucket.
	Wait(ctx context.Context) error

	// Rate returns the refill rate in tokens per second.
	Rate() float64

	// Burst returns the bucket size.
	Burst() int

	// Tokens returns the number of tokens currently available. It is
	// negative while callers are waiting on reserved tokens.
	Tokens() float64
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Rate is the number of tokens added per second. Must be positive.
	Rate float64

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock provides the current time. If nil, the system clock is used.
	Clock Clock
}

// tokenBucket adapts rate.Limiter to Limiter. Every call passes the
// configured clock's time so a mock clock drives the bucket in tests.
type tokenBucket struct {
	lim   *rate.Limiter
	clock Clock
}

// New creates a full bucket refilling at rate tokens per second.
func New(perSecond float64, burst int) (Limiter, error) {
	return NewWithConfig(Config{Rate: perSecond, Burst: burst})
}

// NewWithConfig creates a limiter with custom configuration.
func NewWithConfig(config Config) (Limiter, error) {
	if config.Rate <= 0 || math.IsInf(config.Rate, 0) || math.IsNaN(config.Rate) {
		return nil, gferrors.NewValidationError("ratelimit", "rate", config.Rate, "rate must be a positive finite number").
			WithHint("omit the rate to disable throttling")
	}
	if config.Burst <= 0 {
		return nil, gferrors.NewValidationError("ratelimit", "burst", config.Burst, "burst must be positive").
			WithHint("burst determines how many tokens can be consumed instantly")
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}

	return &tokenBucket{
		lim:   rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
		clock: config.Clock,
	}, nil
}

func (tb *tokenBucket) Allow() bool {
	return tb.lim.AllowN(tb.clock.Now(), 1)
}

func (tb *tokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The balance may go negative; the reservation says how long until the
	// token taken here has been refilled.
	now := tb.clock.Now()
	r := tb.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.CancelAt(tb.clock.Now())
		return ctx.Err()
	}
}

func (tb *tokenBucket) Rate() float64 {
	return float64(tb.lim.Limit())
}

func (tb *tokenBucket) Burst() int {
	return tb.lim.Burst()
}

func (tb *tokenBucket) Tokens() float64 {
	return tb.lim.TokensAt(tb.clock.Now())
}
