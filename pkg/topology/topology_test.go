package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pboueke/pipa/internal/testutil"
	gferrors "github.com/pboueke/pipa/pkg/common/errors"
)

func TestLoadFile(t *testing.T) {
	topo, err := Load(filepath.Join("testdata", "pipeline.toml"))
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, topo.Name, "uuid-demo")
	testutil.AssertEqual[any](t, topo.Run["idle_timeout"], "30s")

	testutil.AssertEqual(t, len(topo.Buffers), 2)
	testutil.AssertEqual(t, topo.Buffers[0], Buffer{Name: "raw_records", Capacity: 50})
	testutil.AssertEqual(t, topo.Buffers[1], Buffer{Name: "processed_records"})

	testutil.AssertEqual(t, len(topo.Stages), 3)
	producer := topo.Stages[0]
	testutil.AssertEqual(t, producer.Type, "generator")
	testutil.AssertDeepEqual(t, producer.Outputs, []string{"raw_records"})
	testutil.AssertEqual(t, producer.Instances, 2)
	testutil.AssertEqual[any](t, producer.Settings["delay"], "100ms")

	sink := topo.Stages[2]
	_, err = uuid.Parse(sink.Name)
	if err != nil {
		t.Errorf("unnamed stage should get a UUID name, got %q", sink.Name)
	}
	testutil.AssertEqual(t, sink.Instances, 1)
	testutil.AssertEqual[any](t, sink.Settings["limit"], int64(100))

	testutil.AssertEqual(t, topo.TotalInstances(), 6)

	b, ok := topo.Buffer("raw_records")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, b.Capacity, 50)
	_, ok = topo.Stage("processor")
	testutil.AssertEqual(t, ok, true)
	_, ok = topo.Stage("missing")
	testutil.AssertEqual(t, ok, false)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	testutil.AssertErrorIs(t, err, os.ErrNotExist)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "no stages",
			doc:   `name = "empty"`,
			field: "stages",
		},
		{
			name: "duplicate buffer",
			doc: `
[[buffers]]
name = "a"
[[buffers]]
name = "a"
[[stages]]
type = "generator"
outputs = ["a"]`,
			field: "buffer name",
		},
		{
			name: "duplicate stage",
			doc: `
[[stages]]
name = "s"
type = "generator"
[[stages]]
name = "s"
type = "sink"`,
			field: "stage name",
		},
		{
			name: "unknown input",
			doc: `
[[stages]]
name = "s"
type = "sink"
input = "nowhere"`,
			field: "s.input",
		},
		{
			name: "unknown output",
			doc: `
[[buffers]]
name = "a"
[[stages]]
name = "s"
type = "generator"
outputs = ["a", "b"]`,
			field: "s.outputs",
		},
		{
			name: "empty output name",
			doc: `
[[buffers]]
name = "a"
[[stages]]
name = "s"
type = "generator"
outputs = [""]`,
			field: "stages[0].outputs[0]",
		},
		{
			name: "negative instances",
			doc: `
[[stages]]
name = "s"
type = "generator"
instances = -1`,
			field: "stages[0].instances",
		},
		{
			name: "missing type",
			doc: `
[[stages]]
name = "s"`,
			field: "stages[0].type",
		},
		{
			name: "negative capacity",
			doc: `
[[buffers]]
name = "a"
capacity = -3
[[stages]]
type = "sink"
input = "a"`,
			field: "buffers[0].capacity",
		},
		{
			name: "unknown key",
			doc: `
[[stages]]
name = "s"
type = "sink"
threads = 4`,
			field: "document",
		},
		{
			name:  "syntax error",
			doc:   `[[stages]`,
			field: "document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			testutil.AssertError(t, err)
			testutil.AssertEqual(t, gferrors.IsConfigurationError(err), true)

			var verr *gferrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected a ValidationError, got %T: %v", err, err)
			}
			testutil.AssertEqual(t, verr.Field, tt.field)
		})
	}
}

func TestApplyAliases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single alias",
			in:   "#alias BUF raw\nname = \"BUF\"",
			want: "name = \"raw\"",
		},
		{
			name: "value keeps inner words",
			in:   "  #alias GREETING hello   big world\nmsg = \"GREETING\"",
			want: "msg = \"hello big world\"",
		},
		{
			name: "incomplete directive dropped",
			in:   "#alias ONLY\nx = \"ONLY\"",
			want: "x = \"ONLY\"",
		},
		{
			name: "redeclaration wins",
			in:   "#alias N 1\n#alias N 2\nx = N",
			want: "x = 2",
		},
		{
			name: "declaration order",
			in:   "#alias A B\n#alias B C\nx = \"A\"",
			want: "x = \"C\"",
		},
		{
			name: "no aliases",
			in:   "# comment\nx = 1",
			want: "# comment\nx = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, string(ApplyAliases([]byte(tt.in))), tt.want)
		})
	}
}
