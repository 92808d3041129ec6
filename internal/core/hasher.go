package core

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// FormatVersion identifies the rendered text layout. Bump it whenever Render
// changes so stale cache entries stop matching.
const FormatVersion = "binembed-asm-v1"

// UnitHash is the content identity of a rendered unit.
//
// Includes: format version, symbol base, file content
// Excludes: logical directory, timestamps, file metadata
type UnitHash string

func (h UnitHash) String() string {
	return string(h)
}

// ContentHasher computes UnitHash values.
type ContentHasher struct{}

// NewContentHasher creates a new ContentHasher.
func NewContentHasher() *ContentHasher {
	return &ContentHasher{}
}

// Hash computes the identity of the unit that Render would produce for
// symbolBase and content.
//
// All fields are length-prefixed to prevent ambiguity between adjacent
// fields.
func (h *ContentHasher) Hash(symbolBase string, content []byte) UnitHash {
	hasher := blake3.New()

	writeField := func(data []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		hasher.Write(length[:])
		hasher.Write(data)
	}

	writeField([]byte(FormatVersion))
	writeField([]byte(symbolBase))
	writeField(content)

	return UnitHash(hex.EncodeToString(hasher.Sum(nil)))
}
