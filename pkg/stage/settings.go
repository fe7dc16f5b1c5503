package stage

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/common/validation"
)

// Settings is the free-form settings table of a stage in the topology.
type Settings map[string]any

// Decode copies the settings into target, a pointer to a struct using
// `mapstructure` tags, then validates its `validate` tags. Values are
// weakly typed ("5" decodes into an int, "250ms" into a time.Duration) and
// keys with no matching field are rejected.
//
// Fields already set in target act as defaults for absent keys.
func (s Settings) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create settings decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(s)); err != nil {
		return gferrors.NewValidationError("stage", "settings", map[string]any(s), err.Error())
	}

	return validation.Struct("stage", target)
}
