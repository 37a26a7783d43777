package testutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelperArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "--", "b"}, HelperArgs([]string{"bin", "-x", "--", "a", "--", "b"}))
	assert.Nil(t, HelperArgs([]string{"bin"}))
}

func TestRunDirectives(t *testing.T) {
	t.Setenv("BB_TESTUTIL", "yes")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	code := runDirectives(
		[]string{"-O2", "stdout=hello", "stderr=warn", "env=BB_TESTUTIL", "stdin", "exit=3", "main.c", "exit=4"},
		strings.NewReader("piped\n"), stdout, stderr)

	assert.Equal(t, 4, code)
	assert.Equal(t, "hello\nBB_TESTUTIL=yes\npiped\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestRunDirectives_Touch(t *testing.T) {
	mark := filepath.Join(t.TempDir(), "main.o")
	code := runDirectives([]string{"touch=" + mark}, strings.NewReader(""), io.Discard, io.Discard)
	assert.Equal(t, 0, code)
	assert.FileExists(t, mark)

	var stderr bytes.Buffer
	code = runDirectives([]string{"touch=" + filepath.Join(mark, "nested")}, strings.NewReader(""), io.Discard, &stderr)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr.String())
}

func TestFakeCompiler(t *testing.T) {
	cc := FakeCompiler()
	assert.Equal(t, os.Args[0], cc.Path)
	assert.Equal(t, "1", cc.Env[HelperEnv])
	assert.Equal(t, []string{os.Args[0], "-test.run=TestHelperProcess", "--", "exit=1"}, cc.Command([]string{"exit=1"}))
}
