package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Compiler(t *testing.T) {
	tests := []struct {
		name  string
		doc   map[string]any
		valid bool
	}{
		{"minimal", map[string]any{"path": "/usr/bin/cc"}, true},
		{"with args and env", map[string]any{
			"path": "/usr/bin/cc",
			"args": []any{"-fPIC"},
			"env":  map[string]any{"LC_ALL": "C"},
		}, true},
		{"missing path", map[string]any{"name": "cc"}, false},
		{"empty path", map[string]any{"path": ""}, false},
		{"unknown field", map[string]any{"path": "/usr/bin/cc", "flavour": "gnu"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Compiler, tt.doc)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
			}
		})
	}
}

func TestValidate_Project(t *testing.T) {
	tests := []struct {
		name  string
		doc   map[string]any
		valid bool
	}{
		{"name only", map[string]any{"name": "x264"}, true},
		{"full", map[string]any{
			"id":          "p-1",
			"name":        "x264",
			"group":       "benchbuild",
			"domain":      "multimedia",
			"version":     "0.148",
			"detect_name": true,
			"exit_policy": "sentinel:42",
			"instrumentation": map[string]any{
				"record": true,
				"steps": []any{
					map[string]any{"kind": "compile"},
					map[string]any{"kind": "tool", "tool": "valgrind", "timeout": "30s"},
				},
			},
		}, true},
		{"bad policy", map[string]any{"name": "x", "exit_policy": "min"}, false},
		{"sentinel zero", map[string]any{"name": "x", "exit_policy": "sentinel:0"}, false},
		{"tool step without tool", map[string]any{
			"name": "x",
			"instrumentation": map[string]any{
				"steps": []any{map[string]any{"kind": "tool"}},
			},
		}, false},
		{"unknown step kind", map[string]any{
			"name": "x",
			"instrumentation": map[string]any{
				"steps": []any{map[string]any{"kind": "link"}},
			},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Project, tt.doc)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_UnknownDefinition(t *testing.T) {
	err := Validate("#Nope", map[string]any{})
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestDecode(t *testing.T) {
	var out struct {
		Compiler string `yaml:"compiler"`
		Project  string `yaml:"project"`
		Store    string `yaml:"store"`
	}
	data := []byte("compiler: cc.yaml\nproject: p.yaml\nstore: bb.db\n")
	require.NoError(t, Decode(data, Manifest, &out))
	assert.Equal(t, "cc.yaml", out.Compiler)
	assert.Equal(t, "p.yaml", out.Project)
	assert.Equal(t, "bb.db", out.Store)
}

func TestDecode_Empty(t *testing.T) {
	var out map[string]any
	err := Decode([]byte(""), Manifest, &out)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestDecode_BadYAML(t *testing.T) {
	var out map[string]any
	err := Decode([]byte("compiler: [unterminated"), Manifest, &out)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestDecodeFile_Missing(t *testing.T) {
	var out map[string]any
	err := DecodeFile(filepath.Join(t.TempDir(), "missing.yaml"), Manifest, &out)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
