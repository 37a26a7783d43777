// Package testutil holds test doubles shared by the shim packages: a
// deterministic wall clock and a fake compiler that runs as a re-executed
// test binary.
package testutil
