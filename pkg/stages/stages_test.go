package stages

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/pboueke/pipa/internal/testutil"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/stage"
	"github.com/pboueke/pipa/pkg/streaming/buffer"
)

// harness wires a stage to an input buffer and an output buffer.
type harness struct {
	in    *buffer.Buffer
	out   *buffer.Buffer
	coord *cancellation.Coordinator
	env   *stage.Env
}

func newHarness(withInput bool, records ...any) *harness {
	h := &harness{
		out:   buffer.New("out", 100),
		coord: cancellation.New(),
	}
	h.env = &stage.Env{
		Stage:       "test",
		Outputs:     []stage.Output{h.out},
		Coordinator: h.coord,
		Logger:      zerolog.Nop(),
		RetryDelay:  time.Millisecond,
	}
	if withInput {
		h.in = buffer.New("in", 100)
		for _, r := range records {
			h.in.TryPut(r)
		}
		h.in.Close()
		h.env.Input = h.in.Consume()
	}
	return h
}

func (h *harness) drain() []any {
	var out []any
	for {
		r, ok := h.out.TryTake()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func initialize(t *testing.T, s stage.Stage, settings stage.Settings) {
	t.Helper()
	testutil.AssertNoError(t, s.Initialize(settings))
}

func TestRegisterBuiltins(t *testing.T) {
	reg := stage.NewRegistry()
	testutil.AssertNoError(t, RegisterBuiltins(reg))
	testutil.AssertDeepEqual(t, reg.Types(), []string{"generator", "passthrough", "script", "sink"})

	// Registering twice collides.
	testutil.AssertError(t, RegisterBuiltins(reg))
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		stage    stage.Stage
		multi    bool
		required bool
	}{
		{&Generator{}, true, false},
		{&Passthrough{}, true, false},
		{&Sink{}, false, true},
		{&Script{}, true, false},
	}
	for _, tt := range tests {
		caps := tt.stage.Capabilities()
		testutil.AssertEqual(t, caps.AllowsMultipleInstances, tt.multi)
		testutil.AssertEqual(t, caps.RequiresCancellationAwareness, tt.required)
	}
}

func TestDefaults(t *testing.T) {
	g := &Generator{}
	initialize(t, g, nil)
	testutil.AssertEqual(t, g.Delay, DefaultDelay)
	testutil.AssertEqual(t, g.Count, 0)

	s := &Sink{}
	initialize(t, s, nil)
	testutil.AssertEqual(t, s.Limit, DefaultSinkLimit)
	testutil.AssertEqual(t, s.Delay, DefaultDelay)
}

func TestSettingsAreValidated(t *testing.T) {
	tests := []struct {
		name     string
		stage    stage.Stage
		settings stage.Settings
	}{
		{"unknown key", &Generator{}, stage.Settings{"speed": 3}},
		{"negative rate", &Generator{}, stage.Settings{"rate": -1}},
		{"negative burst", &Passthrough{}, stage.Settings{"rate": 5, "burst": -2}},
		{"negative count", &Generator{}, stage.Settings{"count": -1}},
		{"zero limit", &Sink{}, stage.Settings{"limit": 0}},
		{"bad delay", &Passthrough{}, stage.Settings{"delay": "soon"}},
		{"missing source", &Script{}, stage.Settings{}},
		{"bad mode", &Script{}, stage.Settings{"source": "return record", "mode": "reduce"}},
		{"syntax error", &Script{}, stage.Settings{"source": "return record +"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stage.Initialize(tt.settings)
			testutil.AssertError(t, err)
			if !gferrors.IsConfigurationError(err) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestGeneratorEmitsCount(t *testing.T) {
	g := &Generator{}
	initialize(t, g, stage.Settings{"count": 3, "delay": "0s"})

	h := newHarness(false)
	testutil.AssertNoError(t, g.Run(context.Background(), h.env))

	out := h.drain()
	testutil.AssertEqual(t, len(out), 3)
	for _, r := range out {
		_, err := uuid.Parse(r.(string))
		testutil.AssertNoError(t, err)
	}
}

func TestGeneratorThrottle(t *testing.T) {
	g := &Generator{}
	initialize(t, g, stage.Settings{"count": 4, "delay": "0s", "rate": 100, "burst": 1})
	testutil.AssertEqual(t, g.limiter != nil, true)

	h := newHarness(false)
	start := time.Now()
	testutil.AssertNoError(t, g.Run(context.Background(), h.env))

	testutil.AssertEqual(t, len(h.drain()), 4)
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("four records at 100/s with burst 1 took %v", elapsed)
	}
}

func TestThrottleDisabledByDefault(t *testing.T) {
	p := &Passthrough{}
	initialize(t, p, nil)
	testutil.AssertEqual(t, p.limiter == nil, true)
}

func TestGeneratorStopsOnCancellation(t *testing.T) {
	g := &Generator{}
	initialize(t, g, stage.Settings{"delay": "1ms"})

	h := newHarness(false)
	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background(), h.env) }()

	time.Sleep(20 * time.Millisecond)
	h.coord.RequestStop(true)

	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("generator did not stop")
	}
	if len(h.drain()) == 0 {
		t.Error("generator emitted nothing before the stop")
	}
}

func TestPassthroughForwardsAndSkipsSentinels(t *testing.T) {
	p := &Passthrough{}
	initialize(t, p, stage.Settings{"delay": 0})

	h := newHarness(true, "a", cancellation.New().Sentinel(), "b")
	testutil.AssertNoError(t, p.Run(context.Background(), h.env))
	testutil.AssertDeepEqual(t, h.drain(), []any{"a", "b"})
}

func TestPassthroughWithoutInputFaults(t *testing.T) {
	p := &Passthrough{}
	initialize(t, p, nil)
	testutil.AssertError(t, p.Run(context.Background(), newHarness(false).env))
}

func TestSinkRequestsStopAtLimit(t *testing.T) {
	s := &Sink{}
	initialize(t, s, stage.Settings{"limit": 2, "delay": 0})

	h := newHarness(true, 1, 2, 3)
	h.coord.DeclareRequiredStopper()
	testutil.AssertNoError(t, s.Run(context.Background(), h.env))

	testutil.AssertEqual(t, h.coord.IsCancelled(), true)
	testutil.AssertEqual(t, h.coord.Received(), 1)
	testutil.AssertEqual(t, h.coord.Forced(), false)
	// The third record was left unread.
	testutil.AssertEqual(t, h.in.Len(), 1)
}

func TestSinkStopsWhenCancelled(t *testing.T) {
	s := &Sink{}
	initialize(t, s, stage.Settings{"limit": 10, "delay": 0})

	h := newHarness(true, 1, 2)
	h.coord.RequestStop(true)
	testutil.AssertNoError(t, s.Run(context.Background(), h.env))
	// Only the forced request was counted.
	testutil.AssertEqual(t, h.coord.Received(), 1)
	// The loop takes one record before it observes the cancellation.
	testutil.AssertEqual(t, h.in.Len(), 1)
}

func TestScriptMap(t *testing.T) {
	s := &Script{}
	initialize(t, s, stage.Settings{
		"source": "if (record === 2) { return null; }\nreturn record * 10;",
	})

	h := newHarness(true, 1, 2, 3)
	testutil.AssertNoError(t, s.Run(context.Background(), h.env))
	testutil.AssertDeepEqual(t, h.drain(), []any{int64(10), int64(30)})
}

func TestScriptFilter(t *testing.T) {
	s := &Script{}
	initialize(t, s, stage.Settings{
		"source": "return record.startsWith('keep');",
		"mode":   ModeFilter,
	})

	h := newHarness(true, "keep-1", "drop", "keep-2")
	testutil.AssertNoError(t, s.Run(context.Background(), h.env))
	testutil.AssertDeepEqual(t, h.drain(), []any{"keep-1", "keep-2"})
}

func TestScriptRuntimeErrorDropsRecord(t *testing.T) {
	s := &Script{}
	initialize(t, s, stage.Settings{
		"source": "if (record === 'bad') { throw new Error('nope'); }\nreturn record;",
	})

	h := newHarness(true, "ok", "bad", "fine")
	testutil.AssertNoError(t, s.Run(context.Background(), h.env))
	testutil.AssertDeepEqual(t, h.drain(), []any{"ok", "fine"})
}

func TestScriptInstancesDoNotShareState(t *testing.T) {
	s := &Script{}
	initialize(t, s, stage.Settings{
		"source": "globalThis.n = (globalThis.n || 0) + 1;\nreturn n;",
	})

	first := newHarness(true, "a", "b")
	testutil.AssertNoError(t, s.Run(context.Background(), first.env))
	second := newHarness(true, "c")
	testutil.AssertNoError(t, s.Run(context.Background(), second.env))

	testutil.AssertDeepEqual(t, first.drain(), []any{int64(1), int64(2)})
	testutil.AssertDeepEqual(t, second.drain(), []any{int64(1)})
}

func TestScriptInterruptedByContext(t *testing.T) {
	s := &Script{}
	initialize(t, s, stage.Settings{"source": "while (true) {}"})

	h := newHarness(true, "spin")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	testutil.AssertNoError(t, s.Run(ctx, h.env))
	testutil.AssertEqual(t, len(h.drain()), 0)
}
