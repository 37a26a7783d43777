package testutil

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boehmseb/benchbuild/internal/toolchain"
)

// HelperEnv marks a re-executed test binary as the fake compiler.
const HelperEnv = "GO_WANT_HELPER_PROCESS"

// FakeCompiler returns a compiler reference that re-executes the running
// test binary. The package under test must declare
//
//	func TestHelperProcess(t *testing.T) { testutil.HelperProcess() }
func FakeCompiler() toolchain.Compiler {
	return toolchain.Compiler{
		Name: "fakecc",
		Path: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--"},
		Env:  map[string]string{HelperEnv: "1"},
	}
}

// HelperProcess acts as the fake compiler when the test binary was started
// by FakeCompiler, and returns immediately otherwise. It interprets the
// arguments after the first "--":
//
//	stdout=TEXT  print TEXT to stdout
//	stderr=TEXT  print TEXT to stderr
//	env=KEY      print KEY=value to stdout
//	stdin        copy stdin to stdout
//	sleep=DUR    sleep
//	touch=PATH   create an empty file
//	exit=N       exit status (last one wins)
//
// Anything else is ignored, like a compiler flag or a source path.
func HelperProcess() {
	if os.Getenv(HelperEnv) != "1" {
		return
	}
	os.Exit(runDirectives(HelperArgs(os.Args), os.Stdin, os.Stdout, os.Stderr))
}

// HelperArgs returns the arguments after the first "--".
func HelperArgs(argv []string) []string {
	for i, a := range argv {
		if a == "--" {
			return argv[i+1:]
		}
	}
	return nil
}

func runDirectives(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	code := 0
	for _, a := range args {
		key, val, _ := strings.Cut(a, "=")
		switch key {
		case "stdout":
			fmt.Fprintln(stdout, val)
		case "stderr":
			fmt.Fprintln(stderr, val)
		case "env":
			fmt.Fprintf(stdout, "%s=%s\n", val, os.Getenv(val))
		case "stdin":
			io.Copy(stdout, stdin)
		case "sleep":
			d, _ := time.ParseDuration(val)
			time.Sleep(d)
		case "touch":
			if err := os.WriteFile(val, nil, 0o644); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		case "exit":
			code, _ = strconv.Atoi(val)
		}
	}
	return code
}
