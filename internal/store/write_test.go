package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boehmseb/benchbuild/internal/project"
)

func TestUpsertProject_Insert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := createTestProject("p1", "x264")
	want.ExitPolicy = "first"
	want.Instrumentation = project.Instrumentation{
		Record: true,
		Steps:  []project.Step{{Kind: project.StepCompile}, {Kind: project.StepTool, Tool: "valgrind"}},
	}
	if err := s.UpsertProject(ctx, want); err != nil {
		t.Fatalf("UpsertProject() failed: %v", err)
	}

	got, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() failed: %v", err)
	}
	if got.Name != "x264" || got.Group != "benchbuild" || !got.DetectName || got.ExitPolicy != "first" {
		t.Errorf("GetProject() = %+v, want %+v", got, want)
	}
	if len(got.Instrumentation.Steps) != 2 || got.Instrumentation.Steps[1].Tool != "valgrind" {
		t.Errorf("instrumentation = %+v", got.Instrumentation)
	}
}

func TestUpsertProject_UpdatesName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertProject(ctx, createTestProject("p1", "x264")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertProject(ctx, createTestProject("p1", "main.c")); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "main.c" {
		t.Errorf("name = %q, want %q", got.Name, "main.c")
	}

	rev, err := s.Revision(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if rev != 2 {
		t.Errorf("revision = %d, want 2", rev)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestUpsertProject_SameRecordIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := createTestProject("p1", "x264")

	for i := 0; i < 3; i++ {
		if err := s.UpsertProject(ctx, r); err != nil {
			t.Fatalf("UpsertProject() #%d failed: %v", i, err)
		}
	}

	got, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "x264" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestUpsertProject_RequiresID(t *testing.T) {
	s := createTestStore(t)
	if err := s.UpsertProject(context.Background(), project.Record{Name: "x"}); err == nil {
		t.Error("expected error for missing id")
	}
}

// TestUpsertProject_ConcurrentWriters races two independent connections
// (as two shim processes would) writing different names for one project.
func TestUpsertProject_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	const rounds = 20
	for i := 0; i < rounds; i++ {
		ra := createTestProject("p1", fmt.Sprintf("a-%d.c", i))
		rb := createTestProject("p1", fmt.Sprintf("b-%d.c", i))
		rb.Domain = "other"

		var g errgroup.Group
		g.Go(func() error { return a.UpsertProject(ctx, ra) })
		g.Go(func() error { return b.UpsertProject(ctx, rb) })
		if err := g.Wait(); err != nil {
			t.Fatalf("round %d: concurrent upsert failed: %v", i, err)
		}

		got, err := a.GetProject(ctx, "p1")
		if err != nil {
			t.Fatal(err)
		}
		switch {
		case got.Name == ra.Name && got.Domain == ra.Domain:
		case got.Name == rb.Name && got.Domain == rb.Domain:
		default:
			t.Fatalf("round %d: hybrid row %+v", i, got)
		}
	}

	rev, err := a.Revision(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if rev != 2*rounds {
		t.Errorf("revision = %d, want %d (a write was lost)", rev, 2*rounds)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	run := createTestRun("r1", "p1", 0, started)
	for i := 0; i < 2; i++ {
		if err := s.WriteRun(ctx, run); err != nil {
			t.Fatalf("WriteRun() #%d failed: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
}

func TestWriteRun_RequiresID(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRun(context.Background(), createTestRun("", "p1", 0, time.Now()))
	if err == nil {
		t.Error("expected error for missing id")
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetProject(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_, err = s.Revision(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
