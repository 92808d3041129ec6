// Package core provides the domain model and the two stages of the embedding
// pipeline.
//
// # Stages
//
// Planning turns a logical path (relative to a project root) into a
// ResourceSpec carrying an identifier-safe symbol base, and decides whether
// the resource is eligible (exists on disk).
//
// Encoding reads the resource bytes and renders an assembler unit exposing
// two linkable symbols:
//
//	_binary_<symbol_base>_start
//	_binary_<symbol_base>_end
//
// The span [start, end) is the file content followed by one 0x00 sentinel.
//
// # Determinism
//
// Output bytes are a pure function of the symbol base and the file content.
// Re-running on unchanged input produces byte-identical units; the optional
// content cache only short-circuits rendering and never changes bytes.
package core
