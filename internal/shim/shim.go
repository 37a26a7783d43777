package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/boehmseb/benchbuild/internal/artifacts"
	"github.com/boehmseb/benchbuild/internal/config"
	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/instrument"
	"github.com/boehmseb/benchbuild/internal/logging"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/reduce"
	"github.com/boehmseb/benchbuild/internal/store/dial"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// Exit codes of the shim itself. Any other status is the compiler's or the
// reduced status of the instrumentation runs.
const (
	ExitCompilerUnresolvable = 1   // manifest or compiler reference unusable
	ExitProjectUnresolvable  = 2   // project record or instrumentation invalid
	ExitAborted              = 125 // store, hook or reduction failed
)

// Shim handles one compiler invocation.
type Shim struct {
	Manifest config.Manifest

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ returns the environment the compiler inherits.
	Environ func() []string

	OpenStore     Opener
	OpenArtifacts func(artifacts.Config) (artifacts.Store, error)

	IDs    execution.IDGenerator
	Exists func(string) bool
}

// New returns a shim for m wired to the process streams.
func New(m config.Manifest) *Shim {
	return &Shim{
		Manifest:      m,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Environ:       os.Environ,
		OpenStore:     dial.Open,
		OpenArtifacts: openMinIO,
		IDs:           execution.UUIDv7Generator{},
		Exists:        project.PathExists,
	}
}

func openMinIO(cfg artifacts.Config) (artifacts.Store, error) {
	return artifacts.NewMinIO(cfg)
}

// Main runs the shim process started as argv and returns its exit status.
func Main(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		logging.Init(logging.Config{})
		slog.Error("shim started without argv[0]")
		return ExitCompilerUnresolvable
	}

	path, err := config.ManifestPath(argv[0])
	if err != nil {
		logging.Init(logging.Config{})
		slog.Error("shim manifest unresolvable", "shim", argv[0], "error", err)
		return ExitCompilerUnresolvable
	}
	m, err := config.LoadManifest(path)
	if err != nil {
		logging.Init(logging.Config{})
		slog.Error("shim manifest unresolvable", "manifest", path, "error", err)
		return ExitCompilerUnresolvable
	}
	if err := logging.Init(m.Logging()); err != nil {
		slog.Warn("log settings ignored", "manifest", path, "error", err)
	}

	code, err := New(m).Run(ctx, argv[1:])
	if err != nil {
		slog.Error("invocation aborted", "manifest", path, "exit_code", code, "error", err)
	}
	return code
}

// Run handles one invocation with the compiler arguments args and returns
// the exit status. A non-nil error explains a status the shim chose itself
// rather than one produced by the compiler.
func (s *Shim) Run(ctx context.Context, args []string) (int, error) {
	cc, ok := toolchain.Load(s.Manifest.Compiler)
	if !ok {
		return ExitCompilerUnresolvable, nil
	}

	backend := &lazyBackend{dsn: s.Manifest.Store, open: s.OpenStore}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()

	d, ok := project.Load(s.Manifest.Project, s.hookBuilder(backend))
	if !ok {
		return ExitProjectUnresolvable, nil
	}

	if project.IsPassthrough(d.Hook) {
		return s.passthrough(ctx, cc, args)
	}

	policy, err := reduce.ParsePolicy(d.ExitPolicy)
	if err != nil {
		slog.Error("project descriptor unresolvable", "project", d.ID, "error", err)
		return ExitProjectUnresolvable, nil
	}

	resolver := project.Resolver{Store: backend, Exists: s.Exists}
	if err := resolver.Resolve(ctx, args, d); err != nil {
		return ExitAborted, err
	}

	results, err := d.Hook.Run(ctx, cc, args, d)
	if err != nil {
		return ExitAborted, fmt.Errorf("project %s: instrumentation: %w", d.ID, err)
	}

	code, err := reduce.Reducer{Policy: policy}.Reduce(results)
	if err != nil {
		return ExitAborted, fmt.Errorf("project %s: %w", d.ID, err)
	}
	slog.Info("invocation finished", "project", d.ID, "name", d.Name, "runs", len(results), "exit_code", code)
	return code, nil
}

func (s *Shim) hookBuilder(backend *lazyBackend) project.HookBuilder {
	return func(in project.Instrumentation) (project.Hook, error) {
		deps := instrument.Deps{
			Runs:    backend,
			IDs:     s.IDs,
			Stdin:   s.Stdin,
			Stdout:  s.Stdout,
			Stderr:  s.Stderr,
			Environ: s.Environ,
		}
		if in.Archive && s.Manifest.Artifacts.Enabled() {
			objects, err := s.OpenArtifacts(s.Manifest.Artifacts)
			if err != nil {
				return nil, fmt.Errorf("object store: %w", err)
			}
			deps.Artifacts = objects
		}
		return instrument.Build(in, deps)
	}
}

// passthrough runs the compiler with the shim's own streams attached and
// returns its status verbatim.
func (s *Shim) passthrough(ctx context.Context, cc toolchain.Compiler, args []string) (int, error) {
	argv := cc.Command(args)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.Env = cc.Environ(s.Environ())

	err := cmd.Run()
	if err == nil {
		return execution.Success, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return execution.ExitStatus(cmd.ProcessState), nil
	}
	return ExitCompilerUnresolvable, fmt.Errorf("start compiler %s: %w", cc.Path, err)
}
