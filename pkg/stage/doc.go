/*
Package stage defines the contract between the pipeline runtime and user
processing logic.

A stage type is registered once under a name and instantiated for every
topology entry that uses it:

	reg := stage.NewRegistry()
	reg.MustRegister("upper", func() stage.Stage { return &Upper{} })

The orchestrator calls Initialize once with the stage's settings table and
then Run once per worker instance. Settings are decoded into a typed struct:

	type upperSettings struct {
		Prefix string `mapstructure:"prefix"`
		Limit  int    `mapstructure:"limit" validate:"gte=0"`
	}

	func (u *Upper) Initialize(s stage.Settings) error {
		return s.Decode(&u.settings)
	}

Inside Run, records are read from env.Input and written with env.Send,
which applies backpressure: a full output is retried every env.RetryDelay
until the record fits or the pipeline is cancelled.

	func (u *Upper) Run(ctx context.Context, env *stage.Env) error {
		for rec := range env.Input {
			if env.Stopped() {
				return nil
			}
			if env.Coordinator.IsCancellationSentinel(rec) {
				continue
			}
			if !env.Send(strings.ToUpper(rec.(string))) {
				return nil
			}
		}
		return nil
	}

A returned error or a panic marks only that instance as faulted; the rest
of the pipeline keeps running.
*/
package stage
