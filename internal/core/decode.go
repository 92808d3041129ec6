package core

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DecodedUnit is the structure recovered from a rendered unit.
type DecodedUnit struct {
	Globals     []string
	StartSymbol string
	EndSymbol   string

	// Payload holds every byte between the start and end labels, sentinel
	// included.
	Payload []byte
}

// Content returns the payload without its trailing sentinel.
func (d *DecodedUnit) Content() []byte {
	if d == nil || len(d.Payload) == 0 {
		return nil
	}
	return d.Payload[:len(d.Payload)-1]
}

// DecodeUnit parses text produced by Render.
//
// It understands the subset of assembler syntax the renderer emits: .section,
// .global, .align, labels, and .byte directives with comma-separated
// literals. Anything else is rejected.
func DecodeUnit(src []byte) (*DecodedUnit, error) {
	var (
		out    DecodedUnit
		labels []string
	)

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasSuffix(line, ":"):
			labels = append(labels, strings.TrimSuffix(line, ":"))
		case strings.HasPrefix(line, ".byte"):
			if len(labels) != 1 {
				return nil, fmt.Errorf("line %d: byte data outside the start/end labels", lineNo)
			}
			data, err := parseByteDirective(strings.TrimPrefix(line, ".byte"))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			out.Payload = append(out.Payload, data...)
		case strings.HasPrefix(line, ".global"):
			out.Globals = append(out.Globals, strings.TrimSpace(strings.TrimPrefix(line, ".global")))
		case strings.HasPrefix(line, ".section"), strings.HasPrefix(line, ".align"):
			continue
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(labels) != 2 {
		return nil, fmt.Errorf("expected 2 labels, found %d", len(labels))
	}
	out.StartSymbol = labels[0]
	out.EndSymbol = labels[1]
	return &out, nil
}

// DecodeByteLiterals returns the payload of a rendered unit, sentinel
// included.
func DecodeByteLiterals(src []byte) ([]byte, error) {
	u, err := DecodeUnit(src)
	if err != nil {
		return nil, err
	}
	return u.Payload, nil
}

func parseByteDirective(operands string) ([]byte, error) {
	fields := strings.Split(operands, ",")
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, fmt.Errorf("empty byte literal")
		}
		v, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("byte literal %q: %w", f, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}
