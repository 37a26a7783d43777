package instrument

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/boehmseb/benchbuild/internal/artifacts"
	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// waitDelay bounds how long Wait keeps copying output after the child
// exits or is killed, in case a grandchild still holds the pipes.
const waitDelay = 2 * time.Second

func (p *Pipeline) runStep(ctx context.Context, i int, s step, cc toolchain.Compiler, args []string, projectID string) (execution.Result, error) {
	argv := s.command(cc, args)

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Env = toolchain.MergeEnv(cc.Environ(p.deps.Environ()), s.env)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	// Only the first step sees the shim's stdin; a build that pipes source
	// into the compiler gets it compiled once.
	if i == 0 {
		cmd.Stdin = p.deps.Stdin
	}

	var stdout, stderr bytes.Buffer
	if s.quiet {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = io.MultiWriter(p.deps.Stdout, &stdout)
		cmd.Stderr = io.MultiWriter(p.deps.Stderr, &stderr)
	}

	r := execution.Result{
		ID:        p.deps.IDs.Generate(),
		ProjectID: projectID,
		Label:     s.label,
		Command:   argv,
	}

	slog.Debug("step starting", "project", projectID, "step", s.label, "run", r.ID, "command", r.CommandString())
	started := p.deps.Now()
	err := cmd.Run()
	r.StartedAt = started.UTC()
	r.Duration = p.deps.Now().Sub(started)
	r.Stdout = stdout.Bytes()
	r.Stderr = stderr.Bytes()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r.ExitCode = execution.Success
	case s.timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		r.Killed = true
		r.KillReason = fmt.Sprintf("timeout after %s", s.timeout)
		r.ExitCode = execution.ExitTimeout
		slog.Warn("step killed", "project", projectID, "step", s.label, "run", r.ID, "reason", r.KillReason)
	case errors.As(err, &exitErr):
		r.ExitCode = execution.ExitStatus(cmd.ProcessState)
		if ctx.Err() != nil {
			r.Killed = true
			r.KillReason = ctx.Err().Error()
		}
	default:
		return r, fmt.Errorf("step %q: run %s: %w", s.label, argv[0], err)
	}

	slog.Debug("step finished", "project", projectID, "step", s.label, "run", r.ID,
		"exit_code", r.ExitCode, "duration", r.Duration)
	return r, nil
}

func (p *Pipeline) archiveOutput(ctx context.Context, r execution.Result) error {
	streams := []struct {
		name string
		data []byte
	}{
		{"stdout", r.Stdout},
		{"stderr", r.Stderr},
	}
	for _, st := range streams {
		if len(st.data) == 0 {
			continue
		}
		key := artifacts.RunKey(r.ProjectID, r.ID, st.name)
		if err := p.deps.Artifacts.Put(ctx, key, bytes.NewReader(st.data), int64(len(st.data)), "text/plain; charset=utf-8"); err != nil {
			return fmt.Errorf("archive %s: %w", key, err)
		}
	}
	return nil
}
