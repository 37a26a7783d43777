package execution

import (
	"os"
	"strings"
	"syscall"
	"time"
)

// Success is the canonical exit status of a successful execution.
const Success = 0

// ExitTimeout is the status recorded for a child killed by its step timeout,
// matching coreutils timeout(1).
const ExitTimeout = 124

// Result is the outcome of one underlying sub-execution.
type Result struct {
	// ID uniquely identifies the run (UUIDv7, time-sortable).
	ID string `json:"id"`

	// ProjectID is the stable identifier of the project the run is attributed to.
	ProjectID string `json:"project_id"`

	// Label names the instrumentation step that produced the run.
	Label string `json:"label"`

	// Command is the full argv that was executed.
	Command []string `json:"command"`

	// ExitCode is the exit status of the child process.
	ExitCode int `json:"exit_code"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Stdout []byte `json:"-"`
	Stderr []byte `json:"-"`

	// Killed reports that the child was terminated by the shim (timeout).
	Killed     bool   `json:"killed,omitempty"`
	KillReason string `json:"kill_reason,omitempty"`
}

// Failed reports whether the run exited with a non-success status.
func (r Result) Failed() bool {
	return r.ExitCode != Success
}

// CommandString returns the command joined by spaces, for display.
func (r Result) CommandString() string {
	return strings.Join(r.Command, " ")
}

// ExitStatus converts a finished process state into a shell-style exit
// status: the exit code when the process exited, 128+signal when it was
// terminated by a signal, and 1 when neither is known.
func ExitStatus(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
