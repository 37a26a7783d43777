// Package execution defines the run record produced by every sub-execution
// of the real compiler.
//
// A single shim invocation yields exactly one Result on the pass-through
// path and one Result per instrumentation step otherwise. Results are
// immutable once produced; only ExitCode takes part in exit status
// reduction; timing and captured output are auxiliary data for storage and
// reporting.
package execution
