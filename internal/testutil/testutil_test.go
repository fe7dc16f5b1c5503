package testutil

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, 200*time.Millisecond, 10*time.Millisecond)
	})
}

func TestAssertEventually(t *testing.T) {
	var flag atomic.Bool

	go func() {
		time.Sleep(50 * time.Millisecond)
		flag.Store(true)
	}()

	AssertEventually(t, flag.Load)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	AssertEqual(t, clock.Now(), start)
	clock.Advance(3 * time.Second)
	AssertEqual(t, clock.Now(), start.Add(3*time.Second))

	if NewMockClock(time.Time{}).Now().IsZero() {
		t.Error("zero start should default to the current time")
	}
}

func TestMockWriter(t *testing.T) {
	w := NewMockWriter()
	_, err := w.Write([]byte("buffer table"))
	AssertNoError(t, err)
	AssertEqual(t, w.String(), "buffer table")

	w.SetAlwaysError(errors.New("disk full"))
	_, err = w.Write([]byte("more"))
	AssertError(t, err)
	AssertEqual(t, w.WriteCount(), 2)
	if strings.Contains(w.String(), "more") {
		t.Error("failed writes should not be recorded")
	}
}

func TestAssertHelpers(t *testing.T) {
	AssertDeepEqual(t, []string{"raw", "upper"}, []string{"raw", "upper"})
	AssertDeepEqual(t, map[string]any{"limit": 5}, map[string]any{"limit": 5})

	cause := errors.New("no such stage")
	AssertErrorIs(t, fmt.Errorf("build: %w", cause), cause)

	AssertContains(t, "required stops: 1", "stops")
	AssertNotContains(t, "required stops: 1", "faulted")
}
