package validation

import (
	"errors"
	"strings"
	"testing"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/internal/testutil"
)

type sampleSettings struct {
	Limit int    `mapstructure:"limit" validate:"gte=1"`
	Mode  string `toml:"mode" validate:"required,oneof=map filter"`
	Raw   string
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		value     sampleSettings
		wantField string
		wantOK    bool
	}{
		{"valid", sampleSettings{Limit: 1, Mode: "map"}, "", true},
		{"limit too small", sampleSettings{Limit: 0, Mode: "map"}, "limit", false},
		{"missing mode", sampleSettings{Limit: 3}, "mode", false},
		{"bad mode", sampleSettings{Limit: 3, Mode: "reduce"}, "mode", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("stage", &tt.value)
			if tt.wantOK {
				testutil.AssertNoError(t, err)
				return
			}

			var verr *gferrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			testutil.AssertEqual(t, verr.Module, "stage")
			testutil.AssertEqual(t, verr.Field, tt.wantField)
			testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
		})
	}
}

func TestStructDescribesTag(t *testing.T) {
	err := Struct("stage", &sampleSettings{Limit: 1, Mode: "x"})
	if err == nil || !strings.Contains(err.Error(), "must be one of: map filter") {
		t.Fatalf("unexpected error: %v", err)
	}
}
