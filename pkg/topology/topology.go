package topology

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
	"github.com/pboueke/pipa/pkg/common/validation"
)

// Buffer declares a bounded queue between stages.
type Buffer struct {
	Name string `toml:"name" validate:"required"`

	// Capacity is the maximum number of queued records. Zero selects the
	// run's default capacity.
	Capacity int `toml:"capacity" validate:"gte=0"`
}

// Stage declares a processing unit and its wiring.
type Stage struct {
	// Name identifies the stage. A missing name is replaced by a generated
	// UUID.
	Name string `toml:"name"`

	// Type selects the registered stage implementation.
	Type string `toml:"type" validate:"required"`

	// Input is the buffer the stage reads from. Empty means no input.
	Input string `toml:"input"`

	// Outputs are the buffers every result is delivered to, in order.
	Outputs []string `toml:"outputs" validate:"dive,required"`

	// Instances is the requested number of concurrent instances. Zero
	// means 1.
	Instances int `toml:"instances" validate:"gte=0"`

	// Settings is passed verbatim to the stage's Initialize.
	Settings map[string]any `toml:"settings"`
}

// Topology is a validated pipeline declaration.
type Topology struct {
	// Name labels runs of this topology in logs and history.
	Name string `toml:"name"`

	// Run holds optional run-level settings. They are layered under
	// environment and command-line configuration.
	Run map[string]any `toml:"run"`

	Buffers []Buffer `toml:"buffers" validate:"dive"`
	Stages  []Stage  `toml:"stages" validate:"required,min=1,dive"`
}

// Load reads and parses the topology file at path.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse substitutes aliases, decodes the TOML document, fills defaults and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Topology, error) {
	data = ApplyAliases(data)

	var t Topology
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&t); err != nil {
		return nil, parseError(err)
	}

	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// normalize fills generated names and default instance counts.
func (t *Topology) normalize() {
	for i := range t.Stages {
		if t.Stages[i].Name == "" {
			t.Stages[i].Name = uuid.NewString()
		}
		if t.Stages[i].Instances == 0 {
			t.Stages[i].Instances = 1
		}
	}
}

// Validate checks the structural rules of the topology: unique buffer and
// stage names, positive instance counts, and that every referenced buffer
// is declared.
func (t *Topology) Validate() error {
	if err := validation.Struct("topology", t); err != nil {
		return err
	}

	buffers := make(map[string]struct{}, len(t.Buffers))
	for i, b := range t.Buffers {
		if err := validation.ValidateNotBlank("topology", fmt.Sprintf("buffers[%d].name", i), b.Name); err != nil {
			return err
		}
		if err := validation.ValidateUnique("topology", "buffer name", buffers, b.Name); err != nil {
			return err
		}
	}

	stages := make(map[string]struct{}, len(t.Stages))
	for _, s := range t.Stages {
		if err := validation.ValidateUnique("topology", "stage name", stages, s.Name); err != nil {
			return err
		}
		if err := validation.ValidatePositive("topology", s.Name+".instances", s.Instances); err != nil {
			return err
		}
		if s.Input != "" {
			if _, ok := buffers[s.Input]; !ok {
				return unknownBuffer(s.Name, "input", s.Input)
			}
		}
		for _, out := range s.Outputs {
			if err := validation.ValidateNotBlank("topology", s.Name+".outputs", out); err != nil {
				return err
			}
			if _, ok := buffers[out]; !ok {
				return unknownBuffer(s.Name, "outputs", out)
			}
		}
	}

	return nil
}

// Buffer returns the declared buffer with the given name.
func (t *Topology) Buffer(name string) (Buffer, bool) {
	for _, b := range t.Buffers {
		if b.Name == name {
			return b, true
		}
	}
	return Buffer{}, false
}

// Stage returns the declared stage with the given name.
func (t *Topology) Stage(name string) (Stage, bool) {
	for _, s := range t.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// TotalInstances returns the sum of requested instance counts.
func (t *Topology) TotalInstances() int {
	n := 0
	for _, s := range t.Stages {
		n += s.Instances
	}
	return n
}

func unknownBuffer(stage, field, name string) error {
	return gferrors.NewValidationError("topology", stage+"."+field, name, "references an undeclared buffer").
		WithHint("declare it in a [[buffers]] table")
}

func parseError(err error) error {
	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		row, col := decErr.Position()
		return gferrors.NewValidationError("topology", "document", fmt.Sprintf("line %d, column %d", row, col), decErr.Error())
	}

	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		return gferrors.NewValidationError("topology", "document", "unknown keys", strictErr.String())
	}

	return gferrors.NewValidationError("topology", "document", nil, err.Error())
}
