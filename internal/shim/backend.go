package shim

import (
	"context"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/store"
)

// Opener opens the store backend named by a DSN.
type Opener func(ctx context.Context, dsn string) (store.Backend, error)

// lazyBackend opens the store on first use, so that invocations that
// never persist anything never touch it.
type lazyBackend struct {
	dsn  string
	open Opener

	b   store.Backend
	err error
}

func (l *lazyBackend) get(ctx context.Context) (store.Backend, error) {
	if l.b == nil && l.err == nil {
		l.b, l.err = l.open(ctx, l.dsn)
	}
	return l.b, l.err
}

func (l *lazyBackend) UpsertProject(ctx context.Context, r project.Record) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.UpsertProject(ctx, r)
}

func (l *lazyBackend) WriteRun(ctx context.Context, r execution.Result) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.WriteRun(ctx, r)
}

func (l *lazyBackend) Close() error {
	if l.b == nil {
		return nil
	}
	return l.b.Close()
}
