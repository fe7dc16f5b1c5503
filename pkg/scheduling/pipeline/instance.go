package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pboueke/pipa/pkg/monitor"
	"github.com/pboueke/pipa/pkg/stage"
)

// instance is one worker execution of a stage. It is submitted to the
// worker pool as a task.
type instance struct {
	p       *orchestrator
	stage   *stageRuntime
	index   int
	outputs []stage.Output

	// ctx is the run context, bound at spawn time so a run that is already
	// cancelled cannot refuse the submission.
	ctx    context.Context
	status atomic.Int32

	// Owned by the orchestrator goroutine.
	err      error
	duration time.Duration
}

// Execute runs the stage for this instance.
func (in *instance) Execute(context.Context) error {
	in.status.Store(int32(monitor.StatusRunning))

	name := in.stage.def.Name
	if hook := in.p.cfg.OnInstanceStart; hook != nil {
		hook(name, in.index)
	}

	env := &stage.Env{
		Stage:       name,
		Instance:    in.index,
		Outputs:     in.outputs,
		Coordinator: in.p.coord,
		Logger:      in.p.log.With().Str("stage", name).Int("instance", in.index).Logger(),
		RetryDelay:  in.p.cfg.RetryDelay,
	}
	if in.stage.input != nil {
		env.Input = in.stage.input.buf.Consume()
	}

	return in.stage.impl.Run(in.ctx, env)
}

func (in *instance) Status() monitor.InstanceStatus {
	return monitor.InstanceStatus(in.status.Load())
}

func (in *instance) result() monitor.InstanceResult {
	return monitor.InstanceResult{
		Stage:    in.stage.def.Name,
		Instance: in.index,
		Status:   in.Status(),
		Err:      in.err,
		Duration: in.duration,
	}
}
