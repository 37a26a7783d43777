// Package dial opens the store backend named by a DSN.
package dial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boehmseb/benchbuild/internal/store"
	"github.com/boehmseb/benchbuild/internal/store/postgres"
)

// ErrNoStore is returned for an empty DSN.
var ErrNoStore = errors.New("no store configured")

// Open returns the backend for dsn:
//
//	postgres://... or postgresql://...  Postgres through pgx
//	sqlite://path or a plain path       SQLite file
func Open(ctx context.Context, dsn string) (store.Backend, error) {
	switch {
	case dsn == "":
		return nil, ErrNoStore
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		cfg, err := postgres.ConfigFromEnv(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres config: %w", err)
		}
		return postgres.Open(ctx, cfg)
	case strings.HasPrefix(dsn, "sqlite://"):
		return store.Open(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.Contains(dsn, "://"):
		scheme, _, _ := strings.Cut(dsn, "://")
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	default:
		return store.Open(dsn)
	}
}
