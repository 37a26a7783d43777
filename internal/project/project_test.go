package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

type stubHook struct{}

func (stubHook) Run(context.Context, toolchain.Compiler, []string, *Descriptor) ([]execution.Result, error) {
	return []execution.Result{{ExitCode: 0}}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_PassthroughWithoutSteps(t *testing.T) {
	path := writeFile(t, "p.yaml", "id: p1\nname: x264\n")

	called := false
	d, ok := Load(path, func(Instrumentation) (Hook, error) {
		called = true
		return stubHook{}, nil
	})
	require.True(t, ok)
	assert.False(t, called)
	assert.True(t, IsPassthrough(d.Hook))
	assert.Equal(t, "p1", d.ID)
}

func TestLoad_BuildsHook(t *testing.T) {
	path := writeFile(t, "p.yaml", `
name: x264
group: benchbuild
detect_name: true
instrumentation:
  record: true
  steps:
    - kind: compile
    - kind: tool
      tool: valgrind
      timeout: 1m
`)

	var got Instrumentation
	d, ok := Load(path, func(in Instrumentation) (Hook, error) {
		got = in
		return stubHook{}, nil
	})
	require.True(t, ok)
	assert.False(t, IsPassthrough(d.Hook))
	assert.True(t, d.DetectName)
	assert.Equal(t, StableID("benchbuild", "", "x264", ""), d.ID)

	want := Instrumentation{
		Record: true,
		Steps: []Step{
			{Kind: StepCompile},
			{Kind: StepTool, Tool: "valgrind", Timeout: "1m"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("instrumentation mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BuildError(t *testing.T) {
	path := writeFile(t, "p.yaml", "name: x\ninstrumentation:\n  steps:\n    - kind: compile\n")
	_, ok := Load(path, func(Instrumentation) (Hook, error) {
		return nil, errors.New("bad step")
	})
	assert.False(t, ok)
}

func TestLoad_Unresolvable(t *testing.T) {
	_, ok := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.False(t, ok)

	invalid := writeFile(t, "p.yaml", "group: nameless\n")
	_, ok = Load(invalid, nil)
	assert.False(t, ok)
}

func TestSaveRecord_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	want := Record{
		ID:         "p1",
		Name:       "lulesh",
		Group:      "benchbuild",
		Domain:     "scientific",
		Version:    "2.0",
		DetectName: true,
		ExitPolicy: "first",
		Instrumentation: Instrumentation{
			Archive: true,
			Steps:   []Step{{Kind: StepCompile, ExtraArgs: []string{"-Rpass=.*"}, Quiet: true}},
		},
	}
	require.NoError(t, SaveRecord(path, want))

	got, ok := LoadRecord(path)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestIsPassthrough(t *testing.T) {
	assert.True(t, IsPassthrough(nil))
	assert.True(t, IsPassthrough(None{}))
	assert.False(t, IsPassthrough(stubHook{}))
}

func TestNone_RunPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = None{}.Run(context.Background(), toolchain.Compiler{}, nil, nil)
	})
}

func TestStep_Timeout(t *testing.T) {
	d, err := Step{Kind: StepCompile}.StepTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = Step{Kind: StepCompile, Timeout: "90s"}.StepTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = Step{Kind: StepCompile, Timeout: "soon"}.StepTimeout()
	assert.Error(t, err)

	_, err = Step{Kind: StepCompile, Timeout: "-1s"}.StepTimeout()
	assert.Error(t, err)
}

func TestStep_DisplayLabel(t *testing.T) {
	assert.Equal(t, "analysis", Step{Kind: StepCompile, Label: "analysis"}.DisplayLabel())
	assert.Equal(t, "valgrind", Step{Kind: StepTool, Tool: "valgrind"}.DisplayLabel())
	assert.Equal(t, "compile", Step{Kind: StepCompile}.DisplayLabel())
}
