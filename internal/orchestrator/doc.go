// Package orchestrator is the boundary between the embedding pipeline and the
// surrounding build system.
//
// The build system learns about generated units only through the sources
// file written by a SourceListRegistrar. Toolchain settings a build hook would
// otherwise export are carried as an explicit ToolchainEnv value and written
// to a dotenv file for the build to source. The process environment is never
// modified.
package orchestrator
