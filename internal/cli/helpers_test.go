package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/store"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seedStore creates a SQLite store with two projects and the runs of one.
func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bb.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.UpsertProject(ctx, project.Record{
		ID: "proj-a", Name: "zlib", Group: "compression", Version: "1.3.1",
		Instrumentation: project.Instrumentation{
			Record: true,
			Steps:  []project.Step{{Kind: project.StepCompile}, {Kind: project.StepCompile, ExtraArgs: []string{"-O3"}}},
		},
	}))
	require.NoError(t, st.UpsertProject(ctx, project.Record{
		ID: "proj-b", Name: "main.c", DetectName: true, ExitPolicy: "first",
	}))

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.WriteRun(ctx, execution.Result{
		ID: "run-1", ProjectID: "proj-a", Label: "compile",
		Command: []string{"/usr/bin/cc", "-c", "adler32.c"},
		ExitCode: 0, StartedAt: started, Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, st.WriteRun(ctx, execution.Result{
		ID: "run-2", ProjectID: "proj-a", Label: "valgrind",
		Command: []string{"valgrind", "/usr/bin/cc", "-c", "adler32.c"},
		ExitCode: execution.ExitTimeout, StartedAt: started.Add(2 * time.Second), Duration: 2 * time.Second,
		Killed: true, KillReason: "timeout after 2s",
	}))
	return path
}
