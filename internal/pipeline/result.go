package pipeline

import "binembed/internal/core"

// Skip records a resource that was not emitted because it does not exist.
type Skip struct {
	Resource string
	Err      error
}

// Result is the outcome of a completed run.
type Result struct {
	PlanHash string

	// Units holds every emitted unit, in plan order.
	Units []*core.EmbeddedUnit

	// Skipped holds missing resources, in plan order.
	Skipped []Skip
}

// OutputPaths lists the generated files in plan order.
func (r *Result) OutputPaths() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		out = append(out, u.OutputPath)
	}
	return out
}

// Stale lists the units check mode found out of date.
func (r *Result) Stale() []*core.EmbeddedUnit {
	if r == nil {
		return nil
	}
	var out []*core.EmbeddedUnit
	for _, u := range r.Units {
		if u.Status == core.StatusStale {
			out = append(out, u)
		}
	}
	return out
}

// Count returns the number of units with the given status.
func (r *Result) Count(status core.EmitStatus) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, u := range r.Units {
		if u.Status == status {
			n++
		}
	}
	return n
}
