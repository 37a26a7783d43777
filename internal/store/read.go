package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
)

// Revision returns how many times a project has been written.
func (s *Store) Revision(ctx context.Context, id string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM projects WHERE id = ?`, id).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

// GetProject retrieves a project by ID. Returns ErrNotFound if absent.
func (s *Store) GetProject(ctx context.Context, id string) (project.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, grp, domain, version, detect_name, exit_policy, instrumentation
		FROM projects
		WHERE id = ?
	`, id)

	r, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Record{}, ErrNotFound
	}
	return r, err
}

// ListProjects returns all projects ordered by group, name and ID.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListProjects(ctx context.Context) ([]project.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, grp, domain, version, detect_name, exit_policy, instrumentation
		FROM projects
		ORDER BY grp ASC, name ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Record{}
	for rows.Next() {
		r, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// ListRuns returns the runs of a project in start order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context, projectID string) ([]execution.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, label, command, exit_code, started_at, duration_ns, killed, kill_reason
		FROM runs
		WHERE project_id = ?
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []execution.Result{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (project.Record, error) {
	var (
		r               project.Record
		detect          int
		instrumentation string
	)
	err := sc.Scan(&r.ID, &r.Name, &r.Group, &r.Domain, &r.Version, &detect, &r.ExitPolicy, &instrumentation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan project: %w", err)
	}
	r.DetectName = detect != 0
	r.Instrumentation, err = DecodeInstrumentation(instrumentation)
	if err != nil {
		return r, fmt.Errorf("project %s: %w", r.ID, err)
	}
	return r, nil
}

func scanRun(sc scanner) (execution.Result, error) {
	var (
		r          execution.Result
		command    string
		startedAt  string
		durationNS int64
		killed     int
	)
	err := sc.Scan(&r.ID, &r.ProjectID, &r.Label, &command, &r.ExitCode, &startedAt, &durationNS, &killed, &r.KillReason)
	if err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}
	if r.Command, err = DecodeCommand(command); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if r.StartedAt, err = ParseTime(startedAt); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	r.Duration = time.Duration(durationNS)
	r.Killed = killed != 0
	return r, nil
}
