// Package pipeline runs a BuildPlan through the planning and encoding stages.
//
// Each resource is independent: it is planned (eligibility check), then
// handed to an Emitter. Missing inputs are skipped; any other failure aborts
// the run. Results are always reported in plan order, whether the run was
// serial or parallel.
package pipeline
