package buffer

import (
	"iter"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the capacity used when a buffer is declared without one.
const DefaultCapacity = 100

// Record is an opaque unit of data flowing between stages.
type Record = any

// Occupancy is a point-in-time view of a buffer used by monitoring.
type Occupancy struct {
	// Count is the number of records currently queued.
	Count int

	// Capacity is the fixed maximum number of queued records.
	Capacity int

	// Consumers is the number of worker instances reading from the buffer.
	Consumers int
}

// Utilization returns Count/Capacity in the range [0, 1].
func (o Occupancy) Utilization() float64 {
	if o.Capacity <= 0 {
		return 0
	}
	return float64(o.Count) / float64(o.Capacity)
}

// Stats holds counters about buffer traffic.
type Stats struct {
	// PutCount is the number of accepted puts.
	PutCount int64

	// RejectedPuts is the number of TryPut calls refused because the buffer
	// was full or closed.
	RejectedPuts int64

	// TakeCount is the number of records handed to consumers.
	TakeCount int64

	// LastPutTime is the timestamp of the last accepted put.
	LastPutTime time.Time

	// LastTakeTime is the timestamp of the last take.
	LastTakeTime time.Time
}

// Buffer is a bounded multi-producer/multi-consumer FIFO queue of records.
// All methods are safe for concurrent use.
type Buffer struct {
	name string

	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []Record
	head     int
	tail     int
	count    int
	closed   bool
	stats    Stats

	// size mirrors count so Occupancy never takes the lock.
	size      atomic.Int64
	consumers atomic.Int32
	producers atomic.Int32
}

// New creates a buffer with the given name and capacity. A non-positive
// capacity falls back to DefaultCapacity.
func New(name string, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	b := &Buffer{
		name:  name,
		items: make([]Record, capacity),
	}
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Name returns the buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// TryPut enqueues r without blocking. It returns false, leaving the buffer
// untouched, when the buffer is full or closed.
func (b *Buffer) TryPut(r Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.count >= len(b.items) {
		b.stats.RejectedPuts++
		return false
	}

	b.items[b.tail] = r
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.size.Store(int64(b.count))
	b.stats.PutCount++
	b.stats.LastPutTime = time.Now()
	b.notEmpty.Signal()

	return true
}

// TryTake dequeues the oldest record without blocking.
func (b *Buffer) TryTake() (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil, false
	}
	return b.removeLocked(), true
}

// Consume returns a sequence over the buffer's records in FIFO order. Each
// call returns an independent sequence; iterating blocks while the buffer is
// empty and ends only after Close once the remaining records are drained.
// Cancellation is never signaled by ending the sequence: it arrives as
// sentinel records.
func (b *Buffer) Consume() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			r, ok := b.take()
			if !ok {
				return
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Occupancy returns a lock-free snapshot of the buffer state.
func (b *Buffer) Occupancy() Occupancy {
	return Occupancy{
		Count:     int(b.size.Load()),
		Capacity:  len(b.items),
		Consumers: int(b.consumers.Load()),
	}
}

// Len returns the number of queued records.
func (b *Buffer) Len() int {
	return int(b.size.Load())
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.items)
}

// AddConsumer registers one more worker instance reading from the buffer.
func (b *Buffer) AddConsumer() {
	b.consumers.Add(1)
}

// AddProducer registers one more worker instance writing to the buffer.
func (b *Buffer) AddProducer() {
	b.producers.Add(1)
}

// Consumers returns the number of registered reading instances.
func (b *Buffer) Consumers() int {
	return int(b.consumers.Load())
}

// Producers returns the number of registered writing instances.
func (b *Buffer) Producers() int {
	return int(b.producers.Load())
}

// Stats returns a copy of the traffic counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close marks the buffer closed and wakes every blocked consumer. Records
// already queued are still delivered. Close is idempotent.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.notEmpty.Broadcast()
}

// IsClosed reports whether Close has been called.
func (b *Buffer) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// take blocks until a record is available or the buffer is closed and empty.
func (b *Buffer) take() (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.notEmpty.Wait()
	}
	if b.count == 0 {
		return nil, false
	}
	return b.removeLocked(), true
}

// removeLocked removes the oldest record (must hold lock).
func (b *Buffer) removeLocked() Record {
	r := b.items[b.head]
	b.items[b.head] = nil // Clear reference
	b.head = (b.head + 1) % len(b.items)
	b.count--
	b.size.Store(int64(b.count))
	b.stats.TakeCount++
	b.stats.LastTakeTime = time.Now()
	return r
}
