package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"binembed/internal/core"
	"binembed/internal/plan"
	"binembed/internal/trace"
)

// Emitter produces the unit for one eligible resource.
type Emitter interface {
	Emit(spec core.ResourceSpec) (*core.EmbeddedUnit, error)
}

// Checker adapts an Encoder so that Emit only compares against existing
// outputs and never writes.
type Checker struct {
	Encoder *core.Encoder
}

func (c Checker) Emit(spec core.ResourceSpec) (*core.EmbeddedUnit, error) {
	return c.Encoder.Check(spec)
}

// Executor drives one BuildPlan.
type Executor struct {
	Plan    *plan.BuildPlan
	Planner *core.Planner
	Emitter Emitter

	// Sink receives per-resource trace events. Optional.
	Sink trace.Sink

	Logger zerolog.Logger
}

// NewExecutor validates its collaborators.
func NewExecutor(p *plan.BuildPlan, planner *core.Planner, emitter Emitter) (*Executor, error) {
	if p == nil {
		return nil, fmt.Errorf("plan is nil")
	}
	if planner == nil {
		return nil, fmt.Errorf("planner is nil")
	}
	if emitter == nil {
		return nil, fmt.Errorf("emitter is nil")
	}
	return &Executor{
		Plan:    p,
		Planner: planner,
		Emitter: emitter,
		Sink:    trace.NopSink{},
		Logger:  zerolog.Nop(),
	}, nil
}

type outcome struct {
	unit *core.EmbeddedUnit
	skip *Skip
	err  error
}

// RunSerial processes resources one at a time in plan order and stops at
// the first fatal error.
func (e *Executor) RunSerial(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	resources := e.Plan.Resources()
	outcomes := make([]outcome, len(resources))
	for i, spec := range resources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcomes[i] = e.process(spec)
		if outcomes[i].err != nil {
			return nil, outcomes[i].err
		}
	}
	return e.collect(outcomes)
}

// RunParallel processes resources on a fixed pool of workers.
//
// Every resource writes to its own name-derived output path, so workers
// share no files. The first fatal error (lowest plan index among those
// observed) is returned and stops further dispatch.
func (e *Executor) RunParallel(ctx context.Context, concurrency int) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be > 0")
	}
	if concurrency == 1 {
		return e.RunSerial(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resources := e.Plan.Resources()
	outcomes := make([]outcome, len(resources))
	workCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				outcomes[i] = e.process(resources[i])
				if outcomes[i].err != nil {
					cancel()
				}
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range resources {
		select {
		case <-runCtx.Done():
			break dispatch
		case workCh <- i:
			dispatched++
		}
	}
	close(workCh)
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
	}
	if dispatched < len(resources) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	}
	return e.collect(outcomes)
}

func (e *Executor) process(spec core.ResourceSpec) outcome {
	planned, err := e.Planner.Plan(spec.Path())
	if err != nil {
		if errors.Is(err, core.ErrMissingInput) {
			e.Logger.Warn().Str("resource", spec.Path()).Msg("file not found, skipping")
			trace.SafeRecord(e.Sink, trace.TraceEvent{
				Kind:     trace.EventResourceSkipped,
				Resource: spec.Path(),
				Symbol:   spec.SymbolBase,
				Reason:   "MissingInput",
			})
			return outcome{skip: &Skip{Resource: spec.Path(), Err: err}}
		}
		e.recordFailure(spec, "PlanFailed")
		return outcome{err: err}
	}

	unit, err := e.Emitter.Emit(planned)
	if err != nil {
		e.recordFailure(spec, "EmitFailed")
		return outcome{err: err}
	}
	trace.SafeRecord(e.Sink, trace.TraceEvent{
		Kind:     eventKind(unit.Status),
		Resource: spec.Path(),
		Symbol:   unit.SymbolBase,
		Artifact: spec.OutputName(),
	})
	return outcome{unit: unit}
}

func (e *Executor) recordFailure(spec core.ResourceSpec, reason string) {
	trace.SafeRecord(e.Sink, trace.TraceEvent{
		Kind:     trace.EventResourceFailed,
		Resource: spec.Path(),
		Symbol:   spec.SymbolBase,
		Reason:   reason,
	})
}

func (e *Executor) collect(outcomes []outcome) (*Result, error) {
	res := &Result{PlanHash: e.Plan.Hash()}
	for _, o := range outcomes {
		switch {
		case o.unit != nil:
			res.Units = append(res.Units, o.unit)
		case o.skip != nil:
			res.Skipped = append(res.Skipped, *o.skip)
		default:
			return nil, fmt.Errorf("resource produced no outcome")
		}
	}
	e.Logger.Info().
		Int("generated", len(res.Units)).
		Int("skipped", len(res.Skipped)).
		Msg("data embedding complete")
	return res, nil
}

func eventKind(status core.EmitStatus) trace.TraceEventKind {
	switch status {
	case core.StatusCached:
		return trace.EventResourceCached
	case core.StatusUnchanged:
		return trace.EventResourceUnchanged
	case core.StatusUpToDate:
		return trace.EventResourceUpToDate
	case core.StatusStale:
		return trace.EventResourceStale
	default:
		return trace.EventResourceGenerated
	}
}
