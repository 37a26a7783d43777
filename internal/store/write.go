package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
)

// UpsertProject inserts a project record or replaces the stored one with
// the same ID, in one atomic statement.
//
// Concurrent callers writing the same ID never fail because of the race
// (busy_timeout serializes them) and leave exactly one of the written rows;
// revision counts every write.
func (s *Store) UpsertProject(ctx context.Context, r project.Record) error {
	if r.ID == "" {
		return errors.New("upsert project: id is required")
	}
	instrumentation, err := EncodeInstrumentation(r.Instrumentation)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects
		(id, name, grp, domain, version, detect_name, exit_policy, instrumentation, revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			name            = excluded.name,
			grp             = excluded.grp,
			domain          = excluded.domain,
			version         = excluded.version,
			detect_name     = excluded.detect_name,
			exit_policy     = excluded.exit_policy,
			instrumentation = excluded.instrumentation,
			revision        = projects.revision + 1,
			updated_at      = excluded.updated_at
	`,
		r.ID,
		r.Name,
		r.Group,
		r.Domain,
		r.Version,
		boolToInt(r.DetectName),
		r.ExitPolicy,
		instrumentation,
		FormatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", r.ID, err)
	}
	return nil
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, r execution.Result) error {
	if r.ID == "" {
		return errors.New("write run: id is required")
	}
	command, err := EncodeCommand(r.Command)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, project_id, label, command, exit_code, started_at, duration_ns, killed, kill_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.ProjectID,
		r.Label,
		command,
		r.ExitCode,
		FormatTime(r.StartedAt),
		r.Duration.Nanoseconds(),
		boolToInt(r.Killed),
		r.KillReason,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	return nil
}
