package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjects_Text(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "projects", "--store", db)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "projects", []byte(out))
}

func TestProjects_JSON(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "projects", "--store", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []ProjectView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "proj-b", resp.Data[0].ID)
	assert.Equal(t, "first", resp.Data[0].ExitPolicy)
	assert.Equal(t, "max", resp.Data[1].ExitPolicy)
	assert.True(t, resp.Data[1].Record)
}

func TestProjects_EmptyStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	out, err := execute(t, "projects", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "=== Projects (0) ===\n  (no projects)\n", out)
}

func TestProjects_NoStore(t *testing.T) {
	t.Setenv("BB_STORE", "")
	out, err := execute(t, "projects")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
}
