package abort

import (
	"sync/atomic"
)

// Source reports whether the operator asked to abort the run. Requested is
// polled from the orchestrator's wait loop and must not block for long.
type Source interface {
	Requested() bool
}

// Flag is a Source that is set programmatically, typically from a signal
// handler. The zero value is ready to use.
type Flag struct {
	set atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() {
	f.set.Store(true)
}

// Requested reports whether Set was called.
func (f *Flag) Requested() bool {
	return f.set.Load()
}

// Func adapts a function to a Source.
type Func func() bool

// Requested calls f.
func (f Func) Requested() bool {
	return f()
}

// Never is a Source that never requests an abort.
var Never Source = Func(func() bool { return false })

// Any returns a Source that is requested when any non-nil source is.
func Any(sources ...Source) Source {
	filtered := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return Func(func() bool {
		for _, s := range filtered {
			if s.Requested() {
				return true
			}
		}
		return false
	})
}
