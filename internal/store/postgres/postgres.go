// Package postgres stores project and run records in PostgreSQL through the
// pgx database/sql driver. It implements store.Backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/boehmseb/benchbuild/internal/config/env"
	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/store"
)

// schemaLockKey serializes schema creation across shims starting at once.
const schemaLockKey = 0x62656e6368

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    grp             TEXT NOT NULL DEFAULT '',
    domain          TEXT NOT NULL DEFAULT '',
    version         TEXT NOT NULL DEFAULT '',
    detect_name     BOOLEAN NOT NULL DEFAULT FALSE,
    exit_policy     TEXT NOT NULL DEFAULT '',
    instrumentation JSONB NOT NULL DEFAULT '{}',
    revision        BIGINT NOT NULL DEFAULT 1,
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    command     JSONB NOT NULL DEFAULT '[]',
    exit_code   INTEGER NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    duration_ns BIGINT NOT NULL DEFAULT 0,
    killed      BOOLEAN NOT NULL DEFAULT FALSE,
    kill_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_id, started_at, id);
CREATE INDEX IF NOT EXISTS idx_projects_group_name ON projects(grp, name);
`

type Config struct {
	URL             string
	PingTimeout     time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFromEnv returns the configuration for url, with pool settings read
// from BB_PG_* variables.
func ConfigFromEnv(url string) (Config, error) {
	pingTimeout, err := env.Duration("BB_PG_PING_TIMEOUT", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	// A shim is a single synchronous process; more connections buy nothing.
	maxOpenConns, err := env.Int("BB_PG_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := env.Duration("BB_PG_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		URL:             url,
		PingTimeout:     pingTimeout,
		MaxOpenConns:    maxOpenConns,
		ConnMaxLifetime: connMaxLifetime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("postgres URL is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("BB_PG_PING_TIMEOUT must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("BB_PG_MAX_OPEN_CONNS must be >= 1")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("BB_PG_CONN_MAX_LIFETIME must be >= 0")
	}
	return nil
}

// Store is a Postgres-backed store.Backend.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Backend = (*Store)(nil)

// Open connects, pings and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply schema: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("apply schema: lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply schema: commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertProject inserts or replaces the project with r.ID in one statement.
// Row-level locking serializes racing writers; the last one wins whole.
func (s *Store) UpsertProject(ctx context.Context, r project.Record) error {
	if r.ID == "" {
		return errors.New("upsert project: id is required")
	}
	instrumentation, err := store.EncodeInstrumentation(r.Instrumentation)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects
		(id, name, grp, domain, version, detect_name, exit_policy, instrumentation, revision, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, 1, $9)
		ON CONFLICT (id) DO UPDATE SET
			name            = EXCLUDED.name,
			grp             = EXCLUDED.grp,
			domain          = EXCLUDED.domain,
			version         = EXCLUDED.version,
			detect_name     = EXCLUDED.detect_name,
			exit_policy     = EXCLUDED.exit_policy,
			instrumentation = EXCLUDED.instrumentation,
			revision        = projects.revision + 1,
			updated_at      = EXCLUDED.updated_at`,
		r.ID, r.Name, r.Group, r.Domain, r.Version, r.DetectName, r.ExitPolicy, instrumentation, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, grp, domain, version, detect_name, exit_policy, instrumentation::text
		FROM projects WHERE id = $1`, id)
	r, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Record{}, store.ErrNotFound
	}
	return r, err
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, grp, domain, version, detect_name, exit_policy, instrumentation::text
		FROM projects
		ORDER BY grp ASC, name ASC, id COLLATE "C" ASC`)
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

// WriteRun inserts a run record; duplicate IDs are ignored.
func (s *Store) WriteRun(ctx context.Context, r execution.Result) error {
	if r.ID == "" {
		return errors.New("write run: id is required")
	}
	command, err := store.EncodeCommand(r.Command)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, project_id, label, command, exit_code, started_at, duration_ns, killed, kill_reason)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.ProjectID, r.Label, command, r.ExitCode, r.StartedAt.UTC(), r.Duration.Nanoseconds(), r.Killed, r.KillReason,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, projectID string) ([]execution.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, label, command::text, exit_code, started_at, duration_ns, killed, kill_reason
		FROM runs
		WHERE project_id = $1
		ORDER BY started_at ASC, id COLLATE "C" ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []execution.Result{}
	for rows.Next() {
		var (
			r          execution.Result
			command    string
			durationNS int64
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Label, &command, &r.ExitCode, &r.StartedAt, &durationNS, &r.Killed, &r.KillReason); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.Command, err = store.DecodeCommand(command); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		r.StartedAt = r.StartedAt.UTC()
		r.Duration = time.Duration(durationNS)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (project.Record, error) {
	var (
		r               project.Record
		instrumentation string
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.Group, &r.Domain, &r.Version, &r.DetectName, &r.ExitPolicy, &instrumentation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan project: %w", err)
	}
	in, err := store.DecodeInstrumentation(instrumentation)
	if err != nil {
		return r, fmt.Errorf("project %s: %w", r.ID, err)
	}
	r.Instrumentation = in
	return r, nil
}
