package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ExecutionTrace is the canonical, deterministic record of one embedding run.
//
// Invariants:
//   - Captures the PlanHash and the set of per-resource events.
//   - Records logical outcomes, not runtime details: no timestamps, no error
//     strings, no worker identities.
//   - Canonical ordering is independent of processing order, so serial and
//     parallel runs of the same plan produce identical bytes.
type ExecutionTrace struct {
	PlanHash string
	Events   []TraceEvent
}

// TraceEventKind is the stable discriminator for TraceEvent.
// The string values are part of the canonical bytes; do not rename.
type TraceEventKind string

const (
	EventResourceGenerated TraceEventKind = "ResourceGenerated"
	EventResourceCached    TraceEventKind = "ResourceCached"
	EventResourceUnchanged TraceEventKind = "ResourceUnchanged"
	EventResourceUpToDate  TraceEventKind = "ResourceUpToDate"
	EventResourceStale     TraceEventKind = "ResourceStale"
	EventResourceSkipped   TraceEventKind = "ResourceSkipped"
	EventResourceFailed    TraceEventKind = "ResourceFailed"
)

// TraceEvent is a single per-resource outcome.
type TraceEvent struct {
	Kind TraceEventKind

	// Resource is the logical path the event refers to. Required.
	Resource string

	// Symbol is the derived symbol base, when known.
	Symbol string

	// Reason is a stable reason code (e.g. "MissingInput").
	Reason string

	// Artifact is the generated file name (not the full path).
	Artifact string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.PlanHash == "" {
		return errors.New("planHash is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Resource == "" {
			return fmt.Errorf("events[%d].resource is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts events by (resource, kindOrder, symbol, reason, artifact).
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.Artifact < b.Artifact
	})
}

func kindOrder(k TraceEventKind) int {
	switch k {
	case EventResourceSkipped:
		return 10
	case EventResourceCached:
		return 20
	case EventResourceGenerated:
		return 30
	case EventResourceUnchanged:
		return 40
	case EventResourceUpToDate:
		return 50
	case EventResourceStale:
		return 60
	case EventResourceFailed:
		return 70
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy to avoid mutating the caller's slice.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	c := ExecutionTrace{PlanHash: t.PlanHash}
	c.Events = make([]TraceEvent, len(t.Events))
	copy(c.Events, t.Events)
	c.Canonicalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&c)
}

// Hash returns the deterministic hash of the canonical JSON bytes.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON fixes field order; sorting is left to CanonicalJSON.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.PlanHash == "" {
		return nil, errors.New("planHash is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"planHash":`)
	ph, _ := json.Marshal(t.PlanHash)
	buf.Write(ph)
	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, "kind", string(e.Kind), true)
	writeField(&buf, "resource", e.Resource, false)
	writeField(&buf, "symbol", e.Symbol, false)
	writeField(&buf, "reason", e.Reason, false)
	writeField(&buf, "artifact", e.Artifact, false)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name, value string, first bool) {
	if value == "" && !first {
		return
	}
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteByte('"')
	buf.WriteString(name)
	buf.WriteString(`":`)
	vb, _ := json.Marshal(value)
	buf.Write(vb)
}
