package core

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	symbolPrefix      = "_binary_"
	startSymbolSuffix = "_start"
	endSymbolSuffix   = "_end"

	// OutputExtension is the extension of every generated unit.
	OutputExtension = ".S"
)

// ResourceSpec names one declared input file.
//
// LogicalPath is the slash-separated path relative to the project root,
// split into segments. SymbolBase is derived from the last segment only.
type ResourceSpec struct {
	LogicalPath []string
	BaseName    string
	SymbolBase  string
}

// Path returns the slash-separated logical path.
func (r ResourceSpec) Path() string {
	return strings.Join(r.LogicalPath, "/")
}

// StartSymbol is the label at the first payload byte.
func (r ResourceSpec) StartSymbol() string {
	return StartSymbol(r.SymbolBase)
}

// EndSymbol is the label one past the sentinel byte.
func (r ResourceSpec) EndSymbol() string {
	return EndSymbol(r.SymbolBase)
}

// OutputName is the file name of the generated unit inside the build dir.
func (r ResourceSpec) OutputName() string {
	return r.BaseName + OutputExtension
}

func StartSymbol(symbolBase string) string {
	return symbolPrefix + symbolBase + startSymbolSuffix
}

func EndSymbol(symbolBase string) string {
	return symbolPrefix + symbolBase + endSymbolSuffix
}

// SymbolBase derives the identifier-safe base from a file base name.
// Every '.' and '-' becomes '_'; nothing else changes, case included.
func SymbolBase(baseName string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(baseName)
}

// Describe derives a ResourceSpec from a logical path without touching the
// filesystem.
//
// The path must be relative and must stay inside the project root. Both
// forward and OS separators are accepted; the stored form is slash-separated.
func Describe(logicalPath string) (ResourceSpec, error) {
	raw := strings.TrimSpace(logicalPath)
	if raw == "" {
		return ResourceSpec{}, invalidPathf(logicalPath, "path must not be empty")
	}
	slashed := filepath.ToSlash(raw)
	if path.IsAbs(slashed) || filepath.IsAbs(raw) {
		return ResourceSpec{}, invalidPathf(logicalPath, "path must be relative to the project root")
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ResourceSpec{}, invalidPathf(logicalPath, "path escapes the project root")
	}

	segments := strings.Split(clean, "/")
	baseName := segments[len(segments)-1]
	symbolBase := SymbolBase(baseName)
	if err := validateSymbolBase(symbolBase); err != nil {
		return ResourceSpec{}, &EmbedError{Kind: ErrInvalidSymbol, Path: clean, Msg: err.Error()}
	}

	return ResourceSpec{
		LogicalPath: segments,
		BaseName:    baseName,
		SymbolBase:  symbolBase,
	}, nil
}

// validateSymbolBase checks that the full start/end symbols are valid
// assembler identifiers. The "_binary_" prefix makes a leading digit legal.
func validateSymbolBase(symbolBase string) error {
	if symbolBase == "" {
		return fmt.Errorf("empty symbol base")
	}
	for i := 0; i < len(symbolBase); i++ {
		c := symbolBase[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return fmt.Errorf("character %q at offset %d is not allowed in %q", c, i, symbolBase)
		}
	}
	return nil
}
