package stages

import (
	"time"

	"github.com/pboueke/pipa/pkg/stage"
)

// DefaultDelay is the pause the example stages take per record.
const DefaultDelay = 100 * time.Millisecond

// DefaultSinkLimit is how many records a sink consumes before it requests
// a stop.
const DefaultSinkLimit = 100

// Builtin describes a stage type shipped with pipa.
type Builtin struct {
	Type        string
	Description string
	Factory     stage.Factory
}

// Builtins lists every built-in stage type.
var Builtins = []Builtin{
	{
		Type:        "generator",
		Description: "emits UUID strings, optionally a fixed count",
		Factory:     func() stage.Stage { return &Generator{} },
	},
	{
		Type:        "passthrough",
		Description: "forwards every input record to its outputs",
		Factory:     func() stage.Stage { return &Passthrough{} },
	},
	{
		Type:        "sink",
		Description: "consumes records and requests a stop after a limit",
		Factory:     func() stage.Stage { return &Sink{} },
	},
	{
		Type:        "script",
		Description: "maps or filters records with a JavaScript function body",
		Factory:     func() stage.Stage { return &Script{} },
	},
}

// RegisterBuiltins adds every built-in stage type to reg.
func RegisterBuiltins(reg *stage.Registry) error {
	for _, b := range Builtins {
		if err := reg.Register(b.Type, b.Factory); err != nil {
			return err
		}
	}
	return nil
}
