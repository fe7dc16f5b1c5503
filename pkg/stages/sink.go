package stages

import (
	"context"
	"time"

	gfcontext "github.com/pboueke/pipa/pkg/common/context"
	"github.com/pboueke/pipa/pkg/stage"
)

// Sink consumes records and requests a stop once it has seen Limit of
// them. It is cancellation-aware, so a topology with a sink ends on its own.
type Sink struct {
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
	Limit int           `mapstructure:"limit" validate:"gte=1"`
}

func (s *Sink) Capabilities() stage.Capabilities {
	return stage.Capabilities{RequiresCancellationAwareness: true}
}

func (s *Sink) Initialize(settings stage.Settings) error {
	s.Delay = DefaultDelay
	s.Limit = DefaultSinkLimit
	return settings.Decode(s)
}

func (s *Sink) Run(ctx context.Context, env *stage.Env) error {
	if env.Input == nil {
		return errNoInput
	}

	consumed := 0
	for rec := range env.Input {
		if env.Coordinator.IsCancelled() {
			break
		}
		if env.Coordinator.IsCancellationSentinel(rec) {
			continue
		}

		consumed++
		env.Logger.Trace().Int("consumed", consumed).Int("limit", s.Limit).Interface("record", rec).Msg("consuming")
		if !gfcontext.Sleep(ctx, s.Delay) {
			break
		}
		if consumed >= s.Limit {
			env.Logger.Info().Int("consumed", consumed).Msg("sink satisfied, requesting stop")
			env.Coordinator.RequestStop(false)
			break
		}
	}
	env.Logger.Debug().Int("consumed", consumed).Msg("sink stopped")
	return nil
}
