// Package context holds small helpers for the cancellation-aware sleeps and
// derived contexts used by stage instances.
package context

import (
	"context"
	"time"
)

// WithDone derives a context that is canceled when the parent is canceled or
// when done is closed, whichever comes first. The returned CancelFunc must be
// called to release the watcher goroutine.
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Sleep pauses for d and returns true, or returns false as soon as ctx is
// canceled. A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !IsCanceled(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
