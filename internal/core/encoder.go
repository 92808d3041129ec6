package core

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Encoder renders ResourceSpecs into assembler units under BuildDir.
type Encoder struct {
	Planner  *Planner
	BuildDir string

	// Cache is optional; nil disables content caching.
	Cache  Cache
	Hasher *ContentHasher

	// WriteIfChanged leaves an output untouched when it already holds the
	// rendered bytes, so downstream tools keep their timestamps.
	WriteIfChanged bool

	Logger zerolog.Logger
}

// NewEncoder creates an Encoder reading from projectRoot and writing to
// buildDir. Logging is disabled until Logger is set.
func NewEncoder(projectRoot, buildDir string) *Encoder {
	return &Encoder{
		Planner:  NewPlanner(projectRoot),
		BuildDir: buildDir,
		Hasher:   NewContentHasher(),
		Logger:   zerolog.Nop(),
	}
}

// OutputPath is where the unit for spec is written.
func (e *Encoder) OutputPath(spec ResourceSpec) string {
	return filepath.Join(e.BuildDir, spec.OutputName())
}

// Emit reads the resource, renders it, and writes BuildDir/<base>.S.
//
// On success the output file exists and is complete. Read and write
// failures are ErrIO and must abort the run.
func (e *Encoder) Emit(spec ResourceSpec) (*EmbeddedUnit, error) {
	content, err := e.read(spec)
	if err != nil {
		return nil, err
	}

	text, status, err := e.render(spec, content)
	if err != nil {
		return nil, err
	}

	unit := newUnit(spec, content, e.OutputPath(spec))
	if err := os.MkdirAll(e.BuildDir, 0o755); err != nil {
		return nil, ioError(e.BuildDir, "create build dir", err)
	}

	if e.WriteIfChanged {
		existing, err := os.ReadFile(unit.OutputPath)
		if err == nil && bytes.Equal(existing, text) {
			status = StatusUnchanged
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, ioError(unit.OutputPath, "read previous output", err)
		}
	}
	if status != StatusUnchanged {
		if err := writeFileAtomic(unit.OutputPath, text, 0o644); err != nil {
			return nil, ioError(unit.OutputPath, "write output", err)
		}
	}
	unit.Status = status

	e.Logger.Info().
		Str("artifact", filepath.Base(unit.OutputPath)).
		Str("source", unit.Source).
		Int("bytes", unit.ContentLength()).
		Str("status", string(status)).
		Msg("generated")
	return unit, nil
}

// Check renders the resource in memory and compares it with the existing
// output. Nothing is written. The returned unit has StatusUpToDate or
// StatusStale.
func (e *Encoder) Check(spec ResourceSpec) (*EmbeddedUnit, error) {
	content, err := e.read(spec)
	if err != nil {
		return nil, err
	}
	text := RenderBytes(spec.SymbolBase, content)

	unit := newUnit(spec, content, e.OutputPath(spec))
	unit.Status = StatusUpToDate
	existing, err := os.ReadFile(unit.OutputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		unit.Status = StatusStale
	case err != nil:
		return nil, ioError(unit.OutputPath, "read previous output", err)
	case !bytes.Equal(existing, text):
		unit.Status = StatusStale
	}

	ev := e.Logger.Info()
	if unit.Status == StatusStale {
		ev = e.Logger.Warn()
		if existing != nil {
			ev = ev.Str("reason", staleReason(existing, unit.Payload))
		}
	}
	ev.Str("artifact", filepath.Base(unit.OutputPath)).
		Str("source", unit.Source).
		Str("status", string(unit.Status)).
		Msg("checked")
	return unit, nil
}

// staleReason tells a changed payload apart from a changed text layout.
func staleReason(existing, payload []byte) string {
	old, err := DecodeByteLiterals(existing)
	switch {
	case err != nil:
		return "unreadable"
	case bytes.Equal(old, payload):
		return "layout"
	default:
		return "content"
	}
}

func (e *Encoder) read(spec ResourceSpec) ([]byte, error) {
	content, err := os.ReadFile(e.Planner.AbsPath(spec))
	if err != nil {
		return nil, ioError(spec.Path(), "read input", err)
	}
	return content, nil
}

// render produces the unit text, consulting the cache when configured.
func (e *Encoder) render(spec ResourceSpec, content []byte) ([]byte, EmitStatus, error) {
	if e.Cache == nil {
		return RenderBytes(spec.SymbolBase, content), StatusGenerated, nil
	}

	hasher := e.Hasher
	if hasher == nil {
		hasher = NewContentHasher()
	}
	key := hasher.Hash(spec.SymbolBase, content)

	text, ok, err := e.Cache.Get(key)
	if err != nil {
		return nil, "", ioError(spec.Path(), "cache lookup", err)
	}
	if ok {
		return text, StatusCached, nil
	}

	text = RenderBytes(spec.SymbolBase, content)
	if err := e.Cache.Put(key, text); err != nil {
		return nil, "", ioError(spec.Path(), "cache store", err)
	}
	return text, StatusGenerated, nil
}
