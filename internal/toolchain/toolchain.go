// Package toolchain holds the Compiler Reference: the executable handle to
// the real compiler a shim stands in for.
//
// A reference is resolved once, when the shim is generated, and written to a
// YAML file next to the shim. Every shim invocation loads it again; it is
// immutable for the lifetime of that process.
package toolchain

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/boehmseb/benchbuild/internal/schema"
)

// Compiler is a resolved reference to the real compiler.
type Compiler struct {
	// Name is the name the build system calls the compiler by (e.g. "clang").
	Name string `yaml:"name,omitempty"`

	// Path is the absolute path of the real compiler executable.
	Path string `yaml:"path"`

	// Args are bound at generation time and precede every forwarded argument.
	Args []string `yaml:"args,omitempty"`

	// Env is overlaid on the inherited environment of every execution.
	Env map[string]string `yaml:"env,omitempty"`
}

// Command returns the full argv for forwarding args to the compiler.
func (c Compiler) Command(args []string) []string {
	argv := make([]string, 0, 1+len(c.Args)+len(args))
	argv = append(argv, c.Path)
	argv = append(argv, c.Args...)
	argv = append(argv, args...)
	return argv
}

// Environ returns base with Env applied. Keys in Env replace existing
// entries; new keys are appended in sorted order.
func (c Compiler) Environ(base []string) []string {
	return MergeEnv(base, c.Env)
}

// MergeEnv overlays overrides on a KEY=VALUE environment list.
func MergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key = kv[:i]
				break
			}
		}
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// Load reads a compiler reference from path.
//
// The second return value is false when the reference cannot be resolved:
// the file is missing or invalid, or the executable it names does not
// exist. The cause is logged; callers only see absence.
func Load(path string) (Compiler, bool) {
	var c Compiler
	if err := schema.DecodeFile(path, schema.Compiler, &c); err != nil {
		slog.Error("compiler reference unresolvable", "ref", path, "error", err)
		return Compiler{}, false
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		slog.Error("compiler executable missing", "ref", path, "path", c.Path, "error", err)
		return Compiler{}, false
	}
	if info.IsDir() {
		slog.Error("compiler path is a directory", "ref", path, "path", c.Path)
		return Compiler{}, false
	}
	return c, true
}

// Resolve looks up a compiler by name or path and returns an absolute
// reference. Names without a separator are searched for in PATH.
func Resolve(name string) (Compiler, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return Compiler{}, fmt.Errorf("resolve compiler %q: %w", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Compiler{}, fmt.Errorf("resolve compiler %q: %w", name, err)
	}
	return Compiler{Name: filepath.Base(name), Path: abs}, nil
}

// Save writes c to path as YAML.
func Save(path string, c Compiler) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal compiler reference: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write compiler reference: %w", err)
	}
	return nil
}
