// Package instrument builds the instrumentation pipeline of a project from
// the steps declared in its record.
//
// A pipeline runs each step as one sub-execution of the real compiler, in
// declaration order, and returns one execution.Result per step. A compiler
// failure is a result, not an error; only a step that cannot be started (or
// a record/archive write that fails) stops the pipeline with an error.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boehmseb/benchbuild/internal/artifacts"
	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/project"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// RunWriter persists run records.
type RunWriter interface {
	WriteRun(ctx context.Context, r execution.Result) error
}

// Deps are the collaborators of a pipeline. Zero fields get process
// defaults, except Runs and Artifacts which are required only when the
// instrumentation asks to record or archive.
type Deps struct {
	Runs      RunWriter
	Artifacts artifacts.Store
	IDs       execution.IDGenerator

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ returns the base environment of every step.
	Environ func() []string
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.IDs == nil {
		d.IDs = execution.UUIDv7Generator{}
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Environ == nil {
		d.Environ = os.Environ
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// step is a validated project.Step.
type step struct {
	kind      string
	label     string
	extraArgs []string
	tool      string
	toolArgs  []string
	timeout   time.Duration
	env       map[string]string
	quiet     bool
}

// command returns the argv of the step for one invocation.
func (s step) command(cc toolchain.Compiler, args []string) []string {
	compilerArgs := make([]string, 0, len(args)+len(s.extraArgs))
	compilerArgs = append(compilerArgs, args...)
	compilerArgs = append(compilerArgs, s.extraArgs...)
	argv := cc.Command(compilerArgs)
	if s.kind != project.StepTool {
		return argv
	}
	out := make([]string, 0, 1+len(s.toolArgs)+len(argv))
	out = append(out, s.tool)
	out = append(out, s.toolArgs...)
	return append(out, argv...)
}

func compileStep(i int, ps project.Step) (step, error) {
	timeout, err := ps.StepTimeout()
	if err != nil {
		return step{}, err
	}
	s := step{
		kind:      ps.Kind,
		label:     ps.DisplayLabel(),
		extraArgs: ps.ExtraArgs,
		tool:      ps.Tool,
		toolArgs:  ps.ToolArgs,
		timeout:   timeout,
		env:       ps.Env,
		quiet:     ps.Quiet,
	}
	switch ps.Kind {
	case project.StepCompile:
		if ps.Tool != "" || len(ps.ToolArgs) > 0 {
			return step{}, fmt.Errorf("step %d (%s): tool is only valid for tool steps", i, s.label)
		}
	case project.StepTool:
		if ps.Tool == "" {
			return step{}, fmt.Errorf("step %d (%s): tool is required", i, s.label)
		}
	default:
		return step{}, fmt.Errorf("step %d: unknown kind %q", i, ps.Kind)
	}
	return s, nil
}

func compileSteps(in []project.Step) ([]step, error) {
	steps := make([]step, 0, len(in))
	for i, ps := range in {
		s, err := compileStep(i, ps)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Check validates the steps of in without building a pipeline.
func Check(in project.Instrumentation) error {
	_, err := compileSteps(in.Steps)
	return err
}

// Pipeline is the project.Hook of an instrumented project.
type Pipeline struct {
	steps   []step
	record  bool
	archive bool
	deps    Deps
}

var _ project.Hook = (*Pipeline)(nil)

// Build turns instrumentation into a hook. Instrumentation without steps
// yields project.None.
func Build(in project.Instrumentation, deps Deps) (project.Hook, error) {
	if !in.Enabled() {
		return project.None{}, nil
	}
	if in.Record && deps.Runs == nil {
		return nil, errors.New("instrumentation records runs but no run store is available")
	}
	if in.Archive && deps.Artifacts == nil {
		return nil, errors.New("instrumentation archives output but no object store is configured")
	}

	steps, err := compileSteps(in.Steps)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		steps:   steps,
		record:  in.Record,
		archive: in.Archive,
		deps:    deps.withDefaults(),
	}, nil
}

// Run executes every step in order against cc with the invocation's args.
func (p *Pipeline) Run(ctx context.Context, cc toolchain.Compiler, args []string, d *project.Descriptor) ([]execution.Result, error) {
	results := make([]execution.Result, 0, len(p.steps))
	for i, s := range p.steps {
		r, err := p.runStep(ctx, i, s, cc, args, d.ID)
		if err != nil {
			return results, err
		}
		results = append(results, r)

		if p.record {
			if err := p.deps.Runs.WriteRun(ctx, r); err != nil {
				return results, fmt.Errorf("record run %s: %w", r.ID, err)
			}
		}
		if p.archive {
			if err := p.archiveOutput(ctx, r); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
