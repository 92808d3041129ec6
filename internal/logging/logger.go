// Package logging builds the structured logger shared by the CLI and the
// pipeline.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human-readable console output instead of JSON
	Out    io.Writer
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", raw)
	}
}

// New creates a structured logger without touching zerolog's package-level
// state. Lines carry no timestamp.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.Out == nil {
		return zerolog.Nop(), fmt.Errorf("logger output is nil")
	}

	var output io.Writer = cfg.Out
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Out,
			NoColor:    true,
			PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		}
	}

	return zerolog.New(output).Level(level), nil
}
