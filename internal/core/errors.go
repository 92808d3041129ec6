package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput marks a declared resource that does not exist. It is
	// not fatal: the resource is skipped and the run continues.
	ErrMissingInput = errors.New("missing input")

	// ErrIO marks unreadable inputs and unwritable outputs. Fatal.
	ErrIO = errors.New("io failure")

	// ErrSymbolCollision marks two distinct resources deriving the same
	// symbol base. Fatal, detected before any file I/O.
	ErrSymbolCollision = errors.New("symbol collision")

	ErrInvalidPath   = errors.New("invalid resource path")
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// EmbedError wraps deterministic pipeline failures.
type EmbedError struct {
	Kind error
	Path string
	Msg  string
	Err  error
}

func (e *EmbedError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause so that
// errors.Is works for either.
func (e *EmbedError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func missingf(path string, err error) error {
	return &EmbedError{Kind: ErrMissingInput, Path: path, Err: err}
}

func ioError(path, op string, err error) error {
	return &EmbedError{Kind: ErrIO, Path: path, Msg: op, Err: err}
}

func invalidPathf(path, format string, args ...any) error {
	return &EmbedError{Kind: ErrInvalidPath, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err must abort the embedding step.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrMissingInput)
}
