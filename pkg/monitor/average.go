package monitor

import "sync"

// Average is a running arithmetic mean of buffer utilization samples.
type Average struct {
	mu    sync.Mutex
	n     int64
	value float64
}

// Add folds v into the mean and returns the updated mean.
func (a *Average) Add(v float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.n++
	a.value += (v - a.value) / float64(a.n)
	return a.value
}

// Value returns the current mean, or 0 with no samples.
func (a *Average) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Samples returns the number of samples folded in.
func (a *Average) Samples() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
