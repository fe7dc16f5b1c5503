/*
Package ratelimit provides the token bucket that throttles stage output.

A Limiter holds up to Burst tokens and refills them at Rate tokens per
second. Each emitted record takes one token; Wait blocks until one is
available or the context ends.

	lim, err := ratelimit.New(50, 10) // 50 records/s, bursts of 10
	if err != nil {
		return err
	}
	for rec := range records {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		send(rec)
	}

The bucket is golang.org/x/time/rate driven through a Clock, so tests can
step time by hand.

One Limiter is safe for concurrent use, so every instance of a stage can
share it and the rate applies to the stage as a whole.
*/
package ratelimit
