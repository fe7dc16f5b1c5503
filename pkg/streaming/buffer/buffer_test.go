package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/pboueke/pipa/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{"explicit", 10, 10},
		{"zero falls back", 0, DefaultCapacity},
		{"negative falls back", -5, DefaultCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("buf", tt.capacity)
			testutil.AssertEqual(t, b.Cap(), tt.want)
			testutil.AssertEqual(t, b.Len(), 0)
			testutil.AssertEqual(t, b.Name(), "buf")
			testutil.AssertEqual(t, b.IsClosed(), false)
		})
	}
}

func TestTryPutAtCapacity(t *testing.T) {
	b := New("buf", 2)

	testutil.AssertEqual(t, b.TryPut(1), true)
	testutil.AssertEqual(t, b.TryPut(2), true)
	testutil.AssertEqual(t, b.TryPut(3), false)
	testutil.AssertEqual(t, b.Len(), 2)

	// A rejected put leaves the contents untouched.
	r, ok := b.TryTake()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, r, Record(1))

	testutil.AssertEqual(t, b.TryPut(3), true)
	testutil.AssertEqual(t, b.Len(), 2)
}

func TestTryTakeEmpty(t *testing.T) {
	b := New("buf", 1)

	r, ok := b.TryTake()
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, r, nil)
}

func TestFIFOWrapAround(t *testing.T) {
	b := New("buf", 3)

	// Push the head around the ring a few times.
	next := 0
	for round := 0; round < 5; round++ {
		for b.TryPut(next) {
			next++
		}
		for i := 0; i < 2; i++ {
			r, ok := b.TryTake()
			testutil.AssertEqual(t, ok, true)
			_ = r
		}
	}

	var got []int
	for {
		r, ok := b.TryTake()
		if !ok {
			break
		}
		got = append(got, r.(int))
	}
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1]+1 {
			t.Fatalf("records out of order: %v", got)
		}
	}
	testutil.AssertEqual(t, got[len(got)-1], next-1)
}

func TestConsumeBlocksUntilPut(t *testing.T) {
	b := New("buf", 4)
	received := make(chan Record, 1)

	go func() {
		for r := range b.Consume() {
			received <- r
			return
		}
	}()

	select {
	case <-received:
		t.Fatal("consumer returned from an empty buffer")
	case <-time.After(50 * time.Millisecond):
	}

	testutil.AssertEqual(t, b.TryPut("hello"), true)

	select {
	case r := <-received:
		testutil.AssertEqual(t, r, Record("hello"))
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken by a put")
	}
}

func TestConsumeDrainsThenEndsOnClose(t *testing.T) {
	b := New("buf", 4)
	b.TryPut(1)
	b.TryPut(2)
	b.Close()

	testutil.AssertEqual(t, b.TryPut(3), false)

	var got []Record
	for r := range b.Consume() {
		got = append(got, r)
	}
	testutil.AssertEqual(t, len(got), 2)
	testutil.AssertEqual(t, got[0], Record(1))
	testutil.AssertEqual(t, got[1], Record(2))
}

func TestCloseWakesBlockedConsumers(t *testing.T) {
	b := New("buf", 4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range b.Consume() {
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	b.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumers still blocked after Close")
	}
}

func TestDoubleClose(t *testing.T) {
	b := New("buf", 1)
	b.Close()
	b.Close()
	testutil.AssertEqual(t, b.IsClosed(), true)
}

func TestNoDropUnderConcurrency(t *testing.T) {
	const (
		producers   = 4
		consumers   = 3
		perProducer = 500
	)

	b := New("buf", 8)
	for i := 0; i < consumers; i++ {
		b.AddConsumer()
	}

	var mu sync.Mutex
	seen := make(map[int]int)
	// Per-producer order must be preserved for each consumer.
	lastByConsumer := make([]map[int]int, consumers)

	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		lastByConsumer[c] = make(map[int]int)
		cwg.Add(1)
		go func(c int) {
			defer cwg.Done()
			for r := range b.Consume() {
				v := r.(int)
				p, seq := v/perProducer, v%perProducer
				if last, ok := lastByConsumer[c][p]; ok && seq <= last {
					t.Errorf("consumer %d saw producer %d out of order: %d after %d", c, p, seq, last)
				}
				lastByConsumer[c][p] = seq

				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}(c)
	}

	var pwg sync.WaitGroup
	for p := 0; p < producers; p++ {
		b.AddProducer()
		pwg.Add(1)
		go func(p int) {
			defer pwg.Done()
			for i := 0; i < perProducer; i++ {
				for !b.TryPut(p*perProducer + i) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}

	pwg.Wait()
	testutil.AssertEventually(t, func() bool { return b.Len() == 0 })
	b.Close()
	cwg.Wait()

	testutil.AssertEqual(t, len(seen), producers*perProducer)
	for v, n := range seen {
		if n != 1 {
			t.Errorf("record %d delivered %d times", v, n)
		}
	}
	testutil.AssertEqual(t, b.Producers(), producers)
	testutil.AssertEqual(t, b.Consumers(), consumers)
}

func TestOccupancy(t *testing.T) {
	b := New("buf", 4)
	b.AddConsumer()
	b.AddConsumer()
	b.TryPut("a")

	occ := b.Occupancy()
	testutil.AssertEqual(t, occ, Occupancy{Count: 1, Capacity: 4, Consumers: 2})
	testutil.AssertEqual(t, occ.Utilization(), 0.25)
	testutil.AssertEqual(t, Occupancy{}.Utilization(), 0.0)
}

func TestStats(t *testing.T) {
	b := New("buf", 1)

	b.TryPut(1)
	b.TryPut(2) // rejected
	b.TryTake()

	stats := b.Stats()
	testutil.AssertEqual(t, stats.PutCount, int64(1))
	testutil.AssertEqual(t, stats.RejectedPuts, int64(1))
	testutil.AssertEqual(t, stats.TakeCount, int64(1))
	if stats.LastPutTime.IsZero() || stats.LastTakeTime.IsZero() {
		t.Error("expected put and take timestamps to be set")
	}
}

func BenchmarkTryPutTryTake(b *testing.B) {
	buf := New("bench", 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.TryPut(i)
		buf.TryTake()
	}
}
