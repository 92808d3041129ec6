package core

// EmbeddedUnit is the product of encoding one resource.
//
// Payload is the file content followed by exactly one 0x00 sentinel, so
// len(Payload) == original length + 1. Units are immutable once returned.
type EmbeddedUnit struct {
	SymbolBase  string
	StartSymbol string
	EndSymbol   string
	Payload     []byte
	OutputPath  string

	// Source is the logical path the unit was built from.
	Source string

	// Status records what the encoder did with OutputPath.
	Status EmitStatus
}

// EmitStatus describes how an output file came to hold its content.
type EmitStatus string

const (
	// StatusGenerated means the unit was rendered and written.
	StatusGenerated EmitStatus = "generated"
	// StatusCached means the rendered text came from the content cache.
	StatusCached EmitStatus = "cached"
	// StatusUnchanged means the output already held identical bytes.
	StatusUnchanged EmitStatus = "unchanged"
	// StatusStale means check mode found the output missing or different.
	StatusStale EmitStatus = "stale"
	// StatusUpToDate means check mode found the output identical.
	StatusUpToDate EmitStatus = "up-to-date"
)

// ContentLength is the length of the original file, excluding the sentinel.
func (u *EmbeddedUnit) ContentLength() int {
	if u == nil || len(u.Payload) == 0 {
		return 0
	}
	return len(u.Payload) - 1
}

func newUnit(spec ResourceSpec, content []byte, outputPath string) *EmbeddedUnit {
	payload := make([]byte, len(content)+1)
	copy(payload, content)
	return &EmbeddedUnit{
		SymbolBase:  spec.SymbolBase,
		StartSymbol: spec.StartSymbol(),
		EndSymbol:   spec.EndSymbol(),
		Payload:     payload,
		OutputPath:  outputPath,
		Source:      spec.Path(),
	}
}
