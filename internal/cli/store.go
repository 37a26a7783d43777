package cli

import (
	"context"
	"errors"

	"github.com/boehmseb/benchbuild/internal/store"
	"github.com/boehmseb/benchbuild/internal/store/dial"
)

// openStore opens the store named by --store, reporting failures through
// formatter.
func openStore(ctx context.Context, opts *RootOptions, formatter *OutputFormatter) (store.Backend, error) {
	if opts.Store == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "no store configured: use --store or BB_STORE", dial.ErrNoStore)
	}
	formatter.VerboseLog("Opening store %s", opts.Store)
	st, err := dial.Open(ctx, opts.Store)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	return st, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
