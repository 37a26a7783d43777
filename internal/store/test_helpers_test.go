package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProject creates a project record with minimal required fields.
func createTestProject(id, name string) project.Record {
	return project.Record{
		ID:         id,
		Name:       name,
		Group:      "benchbuild",
		Domain:     "test",
		Version:    "1.0",
		DetectName: true,
	}
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, projectID string, exitCode int, started time.Time) execution.Result {
	return execution.Result{
		ID:        id,
		ProjectID: projectID,
		Label:     "compile",
		Command:   []string{"/usr/bin/cc", "-c", "main.c"},
		ExitCode:  exitCode,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}
}
