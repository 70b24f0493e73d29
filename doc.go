// Package pgmantle is a framework for writing PostgreSQL extensions in Go.
//
// Authors annotate ordinary Go functions and types with //pgmantle:
// directives. The compiler packages extract those declarations into
// entity metadata, build a dependency graph over them, and emit the
// extension's SQL declarations in a valid topological order together
// with the Go wrapper code that binds each CREATE FUNCTION to its
// implementation at the host's native-function call boundary.
//
// The public surface is split by concern:
//
//   - entity: metadata records for every schema-relevant declaration
//   - abi: physical passing-convention classification of types
//   - sqlgen: the entity dependency graph and the SQL emitter
//   - fcall: the runtime call boundary (argument decoding, result
//     encoding, the set-returning-function continuation protocol,
//     and the error-jump guard)
//   - compiler/load, compiler/gen: source extraction and wrapper
//     code generation
//   - bindgen: typed bindings generated from the host's C headers
//   - pgconfig, harness: registered server installations and the
//     SQL installer used by integration tooling
//
// The cmd/pgmantle CLI ties the compile-time half together.
package pgmantle
