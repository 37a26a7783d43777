// Package project defines the Project Descriptor: the logical build target
// a compiler invocation is attributed to, together with the instrumentation
// hook that replaces or augments the direct compiler call.
//
// # Identity
//
// A project has two identities:
//   - ID: stable, assigned when the shim is generated, never derived from
//     Name. All persistence is keyed by ID.
//   - Name: mutable. When DetectName is set, every instrumented invocation
//     refines Name from its own arguments (see Resolver).
//
// Many compiler invocations of the same project run concurrently in sibling
// processes. Resolver therefore assumes no single-writer access: it persists
// through an idempotent upsert keyed by ID, so racing writes converge on one
// of the written records.
//
// # Hooks
//
// Hook is the instrumentation capability. None is the explicit pass-through
// variant; it is never run. Concrete hooks live in package instrument.
package project
