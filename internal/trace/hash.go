package trace

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ComputeTraceHash hashes a canonical trace encoding (blake3, hex-encoded).
// The input is assumed to come from ExecutionTrace.CanonicalJSON.
func ComputeTraceHash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	sum := blake3.Sum256(canonicalEncoding)
	return hex.EncodeToString(sum[:])
}
