package stages

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/stage"
)

// Script modes.
const (
	ModeMap    = "map"
	ModeFilter = "filter"
)

// Script runs a JavaScript function body against every record. The body
// sees the record as `record` and must return a value.
//
// In map mode the returned value is sent on, and undefined or null drops the
// record. In filter mode the input record is sent on when the returned value
// is truthy.
//
// The body is compiled once by Initialize. Every instance gets its own VM,
// so instances never share script state.
type Script struct {
	Source string `mapstructure:"source" validate:"required"`
	Mode   string `mapstructure:"mode" validate:"oneof=map filter"`

	program *goja.Program
}

func (s *Script) Capabilities() stage.Capabilities {
	return stage.Capabilities{AllowsMultipleInstances: true}
}

func (s *Script) Initialize(settings stage.Settings) error {
	s.Mode = ModeMap
	if err := settings.Decode(s); err != nil {
		return err
	}

	program, err := goja.Compile("script", "(function(record) {\n"+s.Source+"\n})", true)
	if err != nil {
		return gferrors.NewValidationError("script", "source", s.Source, err.Error())
	}
	s.program = program
	return nil
}

func (s *Script) Run(ctx context.Context, env *stage.Env) error {
	if env.Input == nil {
		return errNoInput
	}

	fn, vm, err := s.instantiate(env.Logger)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	var failures int
	for rec := range env.Input {
		if env.Coordinator.IsCancelled() {
			break
		}
		if env.Coordinator.IsCancellationSentinel(rec) {
			continue
		}

		out, keep, err := s.apply(fn, vm, rec)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			env.Logger.Warn().Err(err).Interface("record", rec).Msg("script failed, record dropped")
			continue
		}
		if !keep {
			continue
		}
		if !env.Send(out) {
			break
		}
	}
	env.Logger.Debug().Int("failures", failures).Msg("script stopped")
	return nil
}

// instantiate creates a VM for one instance and returns the compiled
// function.
func (s *Script) instantiate(logger zerolog.Logger) (goja.Callable, *goja.Runtime, error) {
	vm := goja.New()
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return nil, nil, err
		}
	}

	console := vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		logger.Info().Interface("args", args).Msg("script log")
		return goja.Undefined()
	}); err != nil {
		return nil, nil, err
	}
	if err := vm.Set("console", console); err != nil {
		return nil, nil, err
	}

	v, err := vm.RunProgram(s.program)
	if err != nil {
		return nil, nil, fmt.Errorf("load script: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, nil, fmt.Errorf("load script: not a function")
	}
	return fn, vm, nil
}

func (s *Script) apply(fn goja.Callable, vm *goja.Runtime, rec any) (any, bool, error) {
	res, err := fn(goja.Undefined(), vm.ToValue(rec))
	if err != nil {
		return nil, false, err
	}

	if s.Mode == ModeFilter {
		return rec, res.ToBoolean(), nil
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, false, nil
	}
	return res.Export(), true, nil
}
