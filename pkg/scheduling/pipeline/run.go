package pipeline

import (
	"context"
	"errors"
	"time"

	gfcontext "github.com/pboueke/pipa/pkg/common/context"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/cancellation"
	"github.com/pboueke/pipa/pkg/monitor"
	"github.com/pboueke/pipa/pkg/scheduling/workerpool"
)

// Run executes the pipeline. See Pipeline.
func (p *orchestrator) Run(ctx context.Context) (*Result, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, gferrors.ErrAlreadyRunning
	}

	p.mu.Lock()
	p.startTime = time.Now()
	p.mu.Unlock()

	p.setState(StateSpawning)

	if err := p.initialize(); err != nil {
		p.log.Error().Err(err).Msg("stage initialization failed, nothing was started")
		p.teardown()
		return nil, err
	}

	instances := p.prepareInstances()

	if p.coord.Required() == 0 && p.cfg.IdleTimeout <= 0 {
		p.log.Warn().Msg("no cancellation-aware stage and no idle timeout: the run ends only on abort")
		if p.cfg.ConfirmUnbounded != nil && !p.cfg.ConfirmUnbounded() {
			p.teardown()
			return nil, gferrors.ErrAborted
		}
	}

	runCtx, cancel := gfcontext.WithDone(ctx, p.coord.Done())
	defer cancel()

	total := len(instances)
	pool := workerpool.Instrument(workerpool.NewWithConfig(workerpool.Config{
		WorkerCount:  total,
		QueueSize:    total,
		ResultBuffer: total,
	}), p.poolName(), p.cfg.Metrics)

	p.log.Info().
		Str("pipeline", p.name).
		Int("stages", len(p.stages)).
		Int("instances", total).
		Int("required_stops", p.coord.Required()).
		Msg("pipeline started")

	remaining := total
	for _, inst := range instances {
		inst.ctx = runCtx
		if err := pool.Submit(inst); err != nil {
			// The pool is private and sized for every instance.
			inst.err = gferrors.NewOperationError("pipeline", "spawn", err)
			inst.status.Store(int32(monitor.StatusFaulted))
			remaining--
		}
	}

	p.setState(StateRunning)
	p.wait(ctx, pool.Results(), remaining)
	<-pool.Shutdown()

	p.teardown()
	summary := p.summary()
	p.cfg.Sink.Summarize(summary)

	p.log.Info().
		Str("cause", string(summary.Cause)).
		Dur("duration", summary.Duration).
		Int("faulted", len(summary.Faulted())).
		Msg("pipeline terminated")

	return &summary, nil
}

// wait is the orchestrator's supervision loop. It runs until every
// submitted instance has exited.
func (p *orchestrator) wait(ctx context.Context, results <-chan workerpool.Result, remaining int) {
	lastActive := p.cfg.Clock()
	var lastSnapshot time.Time

	ctxDone := ctx.Done()
	cancelled := p.coord.Done()

	for remaining > 0 {
		if p.cfg.Abort.Requested() {
			p.forceStop(monitor.CauseAbort)
		}
		if ctx.Err() != nil {
			p.forceStop(monitor.CauseInterrupted)
		}

		if p.cfg.IdleTimeout > 0 && !p.coord.IsCancelled() {
			now := p.cfg.Clock()
			if p.anyOccupied() {
				lastActive = now
			} else if now.Sub(lastActive) > p.cfg.IdleTimeout {
				p.forceStop(monitor.CauseIdleTimeout)
			}
		}

		interval := p.cfg.MonitorInterval
		if p.coord.IsCancelled() {
			if p.State() == StateRunning {
				p.setState(StateDraining)
			}
			p.flood()
			interval = p.cfg.DrainInterval
		}

		if now := time.Now(); lastSnapshot.IsZero() || now.Sub(lastSnapshot) >= p.cfg.MonitorInterval {
			p.cfg.Sink.Observe(p.snapshot(true))
			lastSnapshot = now
		}

		timer := time.NewTimer(interval)
	waiting:
		for remaining > 0 {
			select {
			case res := <-results:
				p.complete(res)
				remaining--
			case <-timer.C:
				break waiting
			case <-cancelled:
				// Flood right away instead of at the next tick.
				cancelled = nil
				break waiting
			case <-ctxDone:
				ctxDone = nil
				break waiting
			}
		}
		timer.Stop()
	}

	if p.State() != StateDraining && p.coord.IsCancelled() {
		p.setState(StateDraining)
	}
}

// flood writes up to twice the consumer count of sentinels into every
// buffer so each blocked consumer wakes and observes the cancellation.
// Full buffers are skipped; the flood repeats on every loop iteration.
func (p *orchestrator) flood() {
	sentinel := p.coord.Sentinel()
	for _, b := range p.buffers {
		n := 2 * b.buf.Consumers()
		for i := 0; i < n; i++ {
			if !b.buf.TryPut(sentinel) {
				break
			}
			b.sentinels.Add(1)
		}
	}
}

// forceStop cancels the pipeline unconditionally and records cause. It is a
// no-op once the pipeline is cancelled, so a forced request is counted once.
func (p *orchestrator) forceStop(cause monitor.Cause) {
	if p.coord.IsCancelled() {
		return
	}

	p.mu.Lock()
	if p.cause == "" {
		p.cause = cause
	}
	p.mu.Unlock()

	p.log.Info().Str("cause", string(cause)).Msg("force-stopping pipeline")
	p.coord.RequestStop(true)
}

// complete records the exit of one instance.
func (p *orchestrator) complete(res workerpool.Result) {
	inst, ok := workerpool.Unwrap(res.Task).(*instance)
	if !ok {
		return
	}

	err := res.Error
	status := monitor.StatusCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) && inst.ctx.Err() != nil:
		// Returning the context error after cancellation is a normal exit.
		err = nil
	default:
		status = monitor.StatusFaulted
	}

	inst.err = err
	inst.duration = res.Duration
	inst.status.Store(int32(status))

	event := p.log.Debug()
	if status == monitor.StatusFaulted {
		event = p.log.Error().Err(err)
		var perr *workerpool.PanicError
		if errors.As(err, &perr) {
			event = event.Bytes("stack", perr.Stack)
		}
	}
	event.
		Str("stage", inst.stage.def.Name).
		Int("instance", inst.index).
		Str("status", monitor.InstanceStatus(status).String()).
		Dur("duration", res.Duration).
		Msg("instance exited")

	if hook := p.cfg.OnInstanceComplete; hook != nil {
		hook(inst.result())
	}
}

func (p *orchestrator) anyOccupied() bool {
	for _, b := range p.buffers {
		if b.buf.Len() > 0 {
			return true
		}
	}
	return false
}

// teardown closes every buffer and marks the pipeline terminated.
func (p *orchestrator) teardown() {
	for _, b := range p.buffers {
		b.buf.Close()
	}
	p.setState(StateTerminated)
}

func (p *orchestrator) setState(to State) {
	from := State(p.state.Swap(int32(to)))
	if from == to {
		return
	}
	p.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("state changed")
	if hook := p.cfg.OnStateChange; hook != nil {
		hook(from, to)
	}
}

// State returns the current lifecycle phase.
func (p *orchestrator) State() State {
	return State(p.state.Load())
}

// Coordinator returns the run's cancellation coordinator.
func (p *orchestrator) Coordinator() *cancellation.Coordinator {
	return p.coord
}

func (p *orchestrator) poolName() string {
	if p.name != "" {
		return p.name
	}
	return "pipeline"
}
