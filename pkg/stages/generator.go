package stages

import (
	"context"
	"time"

	"github.com/google/uuid"

	gfcontext "github.com/pboueke/pipa/pkg/common/context"
	"github.com/pboueke/pipa/pkg/stage"
)

// Generator emits random UUID strings to its outputs.
type Generator struct {
	// Delay is the pause after each emitted record.
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`

	// Count stops each instance after this many records. Zero emits until
	// the pipeline is cancelled.
	Count int `mapstructure:"count" validate:"gte=0"`

	Throttle `mapstructure:",squash"`
}

func (g *Generator) Capabilities() stage.Capabilities {
	return stage.Capabilities{AllowsMultipleInstances: true}
}

func (g *Generator) Initialize(settings stage.Settings) error {
	g.Delay = DefaultDelay
	if err := settings.Decode(g); err != nil {
		return err
	}
	return g.Throttle.init()
}

func (g *Generator) Run(ctx context.Context, env *stage.Env) error {
	for n := 0; g.Count == 0 || n < g.Count; n++ {
		if env.Stopped() {
			break
		}

		if !g.wait(ctx) {
			break
		}
		rec := uuid.NewString()
		env.Logger.Trace().Str("record", rec).Msg("producing")
		if !env.Send(rec) {
			break
		}
		if !gfcontext.Sleep(ctx, g.Delay) {
			break
		}
	}
	env.Logger.Debug().Msg("generator stopped")
	return nil
}
