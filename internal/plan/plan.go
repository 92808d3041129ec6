package plan

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"binembed/internal/core"
)

// BuildPlan is immutable once constructed.
type BuildPlan struct {
	resources []core.ResourceSpec
	hash      string
}

// FromPaths describes each logical path and builds a plan from the result.
func FromPaths(logicalPaths []string) (*BuildPlan, error) {
	specs := make([]core.ResourceSpec, 0, len(logicalPaths))
	for _, p := range logicalPaths {
		spec, err := core.Describe(p)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return New(specs)
}

// New validates specs and returns a plan preserving declaration order.
//
// The same logical path declared more than once is kept only at its first
// position. Two distinct paths that derive the same symbol base, or symbol
// bases equal under case folding, are rejected with core.ErrSymbolCollision.
func New(specs []core.ResourceSpec) (*BuildPlan, error) {
	seenPath := make(map[string]struct{}, len(specs))
	resources := make([]core.ResourceSpec, 0, len(specs))
	for _, s := range specs {
		if _, dup := seenPath[s.Path()]; dup {
			continue
		}
		seenPath[s.Path()] = struct{}{}
		resources = append(resources, s)
	}

	if err := validateSymbols(resources); err != nil {
		return nil, err
	}

	return &BuildPlan{
		resources: resources,
		hash:      computeHash(resources),
	}, nil
}

// Resources returns a copy of the planned resources in declaration order.
func (p *BuildPlan) Resources() []core.ResourceSpec {
	out := make([]core.ResourceSpec, len(p.resources))
	copy(out, p.resources)
	return out
}

// Len is the number of planned resources.
func (p *BuildPlan) Len() int { return len(p.resources) }

// Hash is the deterministic plan identity.
func (p *BuildPlan) Hash() string { return p.hash }

type collision struct {
	first, second string
	symbol        string
	foldedOnly    bool
}

func validateSymbols(resources []core.ResourceSpec) error {
	exact := make(map[string]string, len(resources))
	folded := make(map[string]core.ResourceSpec, len(resources))

	var found []collision
	for _, r := range resources {
		if prev, ok := exact[r.SymbolBase]; ok {
			found = append(found, collision{first: prev, second: r.Path(), symbol: r.SymbolBase})
			continue
		}
		exact[r.SymbolBase] = r.Path()

		key := strings.ToLower(r.SymbolBase)
		if prev, ok := folded[key]; ok {
			found = append(found, collision{first: prev.Path(), second: r.Path(), symbol: r.SymbolBase, foldedOnly: true})
			continue
		}
		folded[key] = r
	}
	if len(found) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(found))
	for _, c := range found {
		if c.foldedOnly {
			msgs = append(msgs, fmt.Sprintf("%s and %s differ only by case (%s)", c.first, c.second, c.symbol))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s and %s both derive %s", c.first, c.second, c.symbol))
	}
	return &core.EmbedError{Kind: core.ErrSymbolCollision, Msg: strings.Join(msgs, "; ")}
}

// computeHash covers the sorted (path, symbol base) pairs, so declaration
// order does not change the identity.
func computeHash(resources []core.ResourceSpec) string {
	keys := make([]string, len(resources))
	bases := make(map[string]string, len(resources))
	for i, r := range resources {
		keys[i] = r.Path()
		bases[r.Path()] = r.SymbolBase
	}
	sort.Strings(keys)

	hasher := blake3.New()
	writeField := func(s string) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(s)))
		hasher.Write(length[:])
		hasher.Write([]byte(s))
	}
	writeField(core.FormatVersion)
	for _, k := range keys {
		writeField(k)
		writeField(bases[k])
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
