// Command benchbuild installs compiler shims and inspects the project store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/boehmseb/benchbuild/internal/cli"
	"github.com/boehmseb/benchbuild/internal/config/env"
	"github.com/boehmseb/benchbuild/internal/logging"
)

func main() {
	if err := logging.Init(logging.Config{
		Level:  env.String("BB_LOG_LEVEL", ""),
		Format: env.String("BB_LOG_FORMAT", ""),
		File:   env.String("BB_LOG_FILE", ""),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "benchbuild: log settings ignored: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
