package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/boehmseb/benchbuild/internal/execution"
	"github.com/boehmseb/benchbuild/internal/schema"
	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// Step kinds.
const (
	StepCompile = "compile"
	StepTool    = "tool"
)

// Step is one instrumentation sub-execution as written in a project record.
type Step struct {
	Kind      string            `yaml:"kind" json:"kind"`
	Label     string            `yaml:"label,omitempty" json:"label,omitempty"`
	ExtraArgs []string          `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`
	Tool      string            `yaml:"tool,omitempty" json:"tool,omitempty"`
	ToolArgs  []string          `yaml:"tool_args,omitempty" json:"tool_args,omitempty"`
	Timeout   string            `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env       map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Quiet     bool              `yaml:"quiet,omitempty" json:"quiet,omitempty"`
}

// StepTimeout parses Timeout. An empty Timeout means no limit.
func (s Step) StepTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("step %q: timeout: %w", s.DisplayLabel(), err)
	}
	if d < 0 {
		return 0, fmt.Errorf("step %q: timeout must not be negative", s.DisplayLabel())
	}
	return d, nil
}

// DisplayLabel returns Label, falling back to the tool or kind.
func (s Step) DisplayLabel() string {
	switch {
	case s.Label != "":
		return s.Label
	case s.Kind == StepTool && s.Tool != "":
		return s.Tool
	default:
		return s.Kind
	}
}

// Instrumentation is the serialized instrumentation pipeline of a project.
type Instrumentation struct {
	// Record persists every run record to the store.
	Record bool `yaml:"record,omitempty" json:"record,omitempty"`

	// Archive uploads captured output of every run to the object store.
	Archive bool `yaml:"archive,omitempty" json:"archive,omitempty"`

	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Enabled reports whether the project declares any instrumentation.
func (i Instrumentation) Enabled() bool {
	return len(i.Steps) > 0
}

// Record is the persisted form of a project.
type Record struct {
	ID         string `yaml:"id,omitempty" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Group      string `yaml:"group,omitempty" json:"group,omitempty"`
	Domain     string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Version    string `yaml:"version,omitempty" json:"version,omitempty"`
	DetectName bool   `yaml:"detect_name,omitempty" json:"detect_name"`

	// ExitPolicy selects how failing runs reduce to one exit status
	// ("max", "first", "sentinel:N"). Empty means "max".
	ExitPolicy string `yaml:"exit_policy,omitempty" json:"exit_policy,omitempty"`

	Instrumentation Instrumentation `yaml:"instrumentation,omitempty" json:"instrumentation"`
}

// EnsureID assigns StableID to a record without an explicit ID.
func (r *Record) EnsureID() {
	if r.ID == "" {
		r.ID = StableID(r.Group, r.Domain, r.Name, r.Version)
	}
}

// Hook is the instrumentation capability of a project.
//
// Run executes zero or more sub-executions of the real compiler and
// returns one result per sub-execution, in order. A non-nil error means
// the hook could not do its job (e.g. a process failed to start); a
// compiler failure is a result with a non-zero exit code, not an error.
type Hook interface {
	Run(ctx context.Context, cc toolchain.Compiler, args []string, p *Descriptor) ([]execution.Result, error)
}

// None is the pass-through hook: the compiler runs directly.
type None struct{}

// Run always panics; the orchestrator must execute the compiler itself.
func (None) Run(context.Context, toolchain.Compiler, []string, *Descriptor) ([]execution.Result, error) {
	panic("project.None is a pass-through marker and must not be run")
}

// IsPassthrough reports whether h selects the pass-through path.
func IsPassthrough(h Hook) bool {
	if h == nil {
		return true
	}
	_, ok := h.(None)
	return ok
}

// Descriptor is a loaded project: its record plus the resolved hook.
type Descriptor struct {
	Record
	Hook Hook
}

// HookBuilder turns a record's instrumentation into a hook.
type HookBuilder func(Instrumentation) (Hook, error)

// LoadRecord reads a project record from path. The second return value is
// false when the record cannot be resolved; the cause is logged.
func LoadRecord(path string) (Record, bool) {
	var r Record
	if err := schema.DecodeFile(path, schema.Project, &r); err != nil {
		slog.Error("project descriptor unresolvable", "ref", path, "error", err)
		return Record{}, false
	}
	r.EnsureID()
	return r, true
}

// Load reads a project record and builds its hook. Records without
// instrumentation get None and build is not called.
func Load(path string, build HookBuilder) (*Descriptor, bool) {
	r, ok := LoadRecord(path)
	if !ok {
		return nil, false
	}
	if !r.Instrumentation.Enabled() {
		return &Descriptor{Record: r, Hook: None{}}, true
	}
	hook, err := build(r.Instrumentation)
	if err != nil {
		slog.Error("project instrumentation invalid", "ref", path, "project", r.ID, "error", err)
		return nil, false
	}
	return &Descriptor{Record: r, Hook: hook}, true
}

// SaveRecord writes r to path as YAML.
func SaveRecord(path string, r Record) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal project record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project record: %w", err)
	}
	return nil
}
