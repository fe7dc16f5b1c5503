package stage

import (
	"testing"
	"time"

	"github.com/pboueke/pipa/internal/testutil"
	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/streaming/buffer"
)

func TestSendResultDeliversToAllOutputs(t *testing.T) {
	c := cancellation.New()
	a := buffer.New("a", 2)
	b := buffer.New("b", 2)

	ok := SendResult("rec", []Output{a, b}, c, 10*time.Millisecond)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, a.Len(), 1)
	testutil.AssertEqual(t, b.Len(), 1)
}

func TestSendResultNoOutputs(t *testing.T) {
	testutil.AssertEqual(t, SendResult("rec", nil, cancellation.New(), 0), true)
}

func TestSendResultWaitsForSpace(t *testing.T) {
	c := cancellation.New()
	out := buffer.New("out", 1)
	out.TryPut("first")

	go func() {
		time.Sleep(30 * time.Millisecond)
		out.TryTake()
	}()

	start := time.Now()
	ok := SendResult("second", []Output{out}, c, 5*time.Millisecond)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, time.Since(start) >= 25*time.Millisecond, true)

	r, _ := out.TryTake()
	testutil.AssertEqual(t, r, buffer.Record("second"))
}

func TestSendResultGivesUpOnCancellation(t *testing.T) {
	c := cancellation.New()
	out := buffer.New("out", 1)
	out.TryPut("blocking")

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.RequestStop(true)
	}()

	start := time.Now()
	// A long retry delay must not hold the sender once cancelled.
	ok := SendResult("rec", []Output{out}, c, time.Minute)
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, time.Since(start) < testutil.TestTimeout, true)
	testutil.AssertEqual(t, out.Len(), 1)
}

func TestSendResultIsNotAtomicAcrossOutputs(t *testing.T) {
	c := cancellation.New()
	c.RequestStop(true)

	free := buffer.New("free", 1)
	full := buffer.New("full", 1)
	full.TryPut("x")

	ok := SendResult("rec", []Output{free, full}, c, time.Millisecond)
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, free.Len(), 1)
}

func TestEnvSend(t *testing.T) {
	c := cancellation.New()
	out := buffer.New("out", 1)
	env := &Env{Outputs: []Output{out}, Coordinator: c, RetryDelay: time.Millisecond}

	testutil.AssertEqual(t, env.Send(1), true)
	testutil.AssertEqual(t, env.Stopped(), false)

	c.RequestStop(true)
	testutil.AssertEqual(t, env.Send(2), false)
	testutil.AssertEqual(t, env.Stopped(), true)
}
