package stages

import (
	"context"
	"errors"
	"time"

	gfcontext "github.com/pboueke/pipa/pkg/common/context"
	"github.com/pboueke/pipa/pkg/stage"
)

var errNoInput = errors.New("stage needs an input buffer")

// Passthrough forwards every record it reads, after an optional delay.
type Passthrough struct {
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`

	Throttle `mapstructure:",squash"`
}

func (p *Passthrough) Capabilities() stage.Capabilities {
	return stage.Capabilities{AllowsMultipleInstances: true}
}

func (p *Passthrough) Initialize(settings stage.Settings) error {
	p.Delay = DefaultDelay
	if err := settings.Decode(p); err != nil {
		return err
	}
	return p.Throttle.init()
}

func (p *Passthrough) Run(ctx context.Context, env *stage.Env) error {
	if env.Input == nil {
		return errNoInput
	}

	for rec := range env.Input {
		if env.Coordinator.IsCancelled() {
			break
		}
		if env.Coordinator.IsCancellationSentinel(rec) {
			continue
		}

		env.Logger.Trace().Interface("record", rec).Msg("processing")
		if !gfcontext.Sleep(ctx, p.Delay) || !p.wait(ctx) {
			break
		}
		if !env.Send(rec) {
			break
		}
	}
	env.Logger.Debug().Msg("passthrough stopped")
	return nil
}
