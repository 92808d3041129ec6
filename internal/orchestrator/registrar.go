package orchestrator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"binembed/internal/core"
)

// Registrar adds generated units to the active build's source set.
type Registrar interface {
	Register(unit *core.EmbeddedUnit) error

	// Commit publishes everything registered so far.
	Commit() error
}

// NopRegistrar discards registrations.
type NopRegistrar struct{}

func (NopRegistrar) Register(*core.EmbeddedUnit) error { return nil }
func (NopRegistrar) Commit() error                     { return nil }

// SourcesFormat selects the syntax of the sources file.
type SourcesFormat string

const (
	// FormatList writes one path per line.
	FormatList SourcesFormat = "list"
	// FormatCMake writes a set() of the generated paths.
	FormatCMake SourcesFormat = "cmake"
	// FormatMake writes a make variable assignment.
	FormatMake SourcesFormat = "make"
)

// DefaultVariable names the variable in cmake and make output.
const DefaultVariable = "BINEMBED_SOURCES"

// ParseSourcesFormat accepts the names above, case-insensitively.
func ParseSourcesFormat(raw string) (SourcesFormat, error) {
	switch f := SourcesFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatList, FormatCMake, FormatMake:
		return f, nil
	case "":
		return FormatList, nil
	default:
		return "", fmt.Errorf("invalid sources format %q (expected list|cmake|make)", raw)
	}
}

// SourceListRegistrar collects output paths and writes them to Path on
// Commit. Paths are written relative to RelativeTo when set, with forward
// slashes, in registration order.
type SourceListRegistrar struct {
	Path       string
	Format     SourcesFormat
	Variable   string
	RelativeTo string

	paths []string
	seen  map[string]struct{}
}

// NewSourceListRegistrar creates a registrar writing to path.
func NewSourceListRegistrar(path string, format SourcesFormat) *SourceListRegistrar {
	return &SourceListRegistrar{
		Path:     path,
		Format:   format,
		Variable: DefaultVariable,
		seen:     make(map[string]struct{}),
	}
}

func (r *SourceListRegistrar) Register(unit *core.EmbeddedUnit) error {
	if unit == nil || unit.OutputPath == "" {
		return fmt.Errorf("register: unit has no output path")
	}
	p := unit.OutputPath
	if r.RelativeTo != "" {
		rel, err := filepath.Rel(r.RelativeTo, p)
		if err != nil {
			return fmt.Errorf("register %s: %w", p, err)
		}
		p = rel
	}
	p = filepath.ToSlash(p)
	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	if _, dup := r.seen[p]; dup {
		return nil
	}
	r.seen[p] = struct{}{}
	r.paths = append(r.paths, p)
	return nil
}

// Registered returns the registered paths in order.
func (r *SourceListRegistrar) Registered() []string {
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Commit writes the sources file atomically. An empty registration still
// produces a valid (empty) file so the build never reads a stale list.
func (r *SourceListRegistrar) Commit() error {
	if r.Path == "" {
		return fmt.Errorf("sources file path is empty")
	}
	data, err := RenderSources(r.Format, r.variable(), r.paths)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("create sources dir: %w", err)
	}
	if err := writeFileAtomic(r.Path, data, 0o644); err != nil {
		return fmt.Errorf("write sources file: %w", err)
	}
	return nil
}

func (r *SourceListRegistrar) variable() string {
	if r.Variable == "" {
		return DefaultVariable
	}
	return r.Variable
}

// RenderSources formats paths in the requested syntax.
func RenderSources(format SourcesFormat, variable string, paths []string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatList, "":
		for _, p := range paths {
			buf.WriteString(p)
			buf.WriteByte('\n')
		}
	case FormatCMake:
		buf.WriteString("set(" + variable)
		for _, p := range paths {
			buf.WriteString("\n    \"" + p + "\"")
		}
		buf.WriteString("\n)\n")
	case FormatMake:
		buf.WriteString(variable + " :=")
		for _, p := range paths {
			buf.WriteString(" \\\n    " + strings.ReplaceAll(p, " ", "\\ "))
		}
		buf.WriteByte('\n')
	default:
		return nil, fmt.Errorf("unknown sources format %q", format)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
