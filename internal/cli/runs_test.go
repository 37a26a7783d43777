package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns_Text(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "runs", "proj-a", "--store", db)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "runs", []byte(out))
}

func TestRuns_Verbose(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "runs", "proj-a", "--store", db, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "       ID: run-2\n")
	assert.Contains(t, out, "       Command: valgrind /usr/bin/cc -c adler32.c\n")
}

func TestRuns_JSON(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "runs", "proj-a", "--store", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Data.ExitStatus)
	assert.Equal(t, 124, *resp.Data.ExitStatus)
	assert.Equal(t, "max", resp.Data.Policy)
}

func TestRuns_UnknownProject(t *testing.T) {
	db := seedStore(t)
	out, err := execute(t, "runs", "proj-z", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs found for project: proj-z\n", out)
}

func TestRuns_ProjectPolicy(t *testing.T) {
	db := seedStore(t)
	// proj-b reduces with "first" but has no runs.
	out, err := execute(t, "runs", "proj-b", "--store", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "first", resp.Data.Policy)
	assert.Nil(t, resp.Data.ExitStatus)
}
