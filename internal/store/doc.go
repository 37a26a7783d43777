// Package store provides SQLite-backed durable storage for project records
// and run records.
//
// Many shim processes of one build write to the same database concurrently,
// one per compiler invocation. Every write is therefore a single atomic
// statement:
//   - Projects: INSERT ... ON CONFLICT(id) DO UPDATE, keyed by the stable
//     project ID. Racing writers converge on one complete row; revision
//     counts every write.
//   - Runs: INSERT ... ON CONFLICT(id) DO NOTHING, keyed by the run UUID.
//
// # Database Configuration
//
//   - busy_timeout=5000: Wait for locks held by sibling shims
//   - WAL mode: Readers (benchbuild projects/runs) never block writers
//   - synchronous=NORMAL: Balance durability/performance
//
// All listings are ordered deterministically (ORDER BY ..., id COLLATE BINARY).
//
// The Postgres backend in store/postgres implements the same Backend
// interface.
package store
