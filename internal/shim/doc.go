// Package shim is the entry point of a generated compiler shim.
//
// A build invokes the shim in place of the real compiler. The shim loads
// the compiler reference and project record named by its manifest, then
// either hands the invocation to the compiler untouched (no
// instrumentation) or resolves the project identity, runs the project's
// instrumentation pipeline and reduces the results to one exit status.
//
// Exit statuses:
//
//	0    success
//	1    compiler reference unresolvable, or compiler failed to start
//	2    project record unresolvable
//	125  invocation aborted (store, hook or reduction error)
//	*    the compiler's own status, or the reduced status of the runs
package shim
