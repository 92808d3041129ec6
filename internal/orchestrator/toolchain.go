package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ComponentManagerVar is the toolchain switch for its optional dependency
// resolver.
const ComponentManagerVar = "IDF_COMPONENT_MANAGER"

// ToolchainEnv is process-wide toolchain configuration, held as a value.
type ToolchainEnv map[string]string

// WithComponentManager returns a copy with the component manager toggled.
func (t ToolchainEnv) WithComponentManager(enabled bool) ToolchainEnv {
	out := t.Clone()
	if enabled {
		out[ComponentManagerVar] = "1"
	} else {
		out[ComponentManagerVar] = "0"
	}
	return out
}

// Clone returns an independent copy; a nil receiver yields an empty map.
func (t ToolchainEnv) Clone() ToolchainEnv {
	out := make(ToolchainEnv, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge overlays other on a copy of t; other wins on conflicts.
func (t ToolchainEnv) Merge(other ToolchainEnv) ToolchainEnv {
	out := t.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the variable names, sorted.
func (t ToolchainEnv) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects names a shell could not export.
func (t ToolchainEnv) Validate() error {
	for _, k := range t.Keys() {
		if k == "" {
			return fmt.Errorf("toolchain env: empty variable name")
		}
		if strings.ContainsAny(k, "= \t\n") || (k[0] >= '0' && k[0] <= '9') {
			return fmt.Errorf("toolchain env: invalid variable name %q", k)
		}
	}
	return nil
}

// ReadToolchainEnv parses a dotenv file without touching the process
// environment.
func ReadToolchainEnv(path string) (ToolchainEnv, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read toolchain env %s: %w", path, err)
	}
	return ToolchainEnv(values), nil
}

// WriteToolchainEnv writes env as a dotenv file with sorted keys.
func WriteToolchainEnv(path string, env ToolchainEnv) error {
	if err := env.Validate(); err != nil {
		return err
	}
	content, err := godotenv.Marshal(map[string]string(env))
	if err != nil {
		return fmt.Errorf("marshal toolchain env: %w", err)
	}
	if content != "" {
		content += "\n"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create toolchain env dir: %w", err)
	}
	if err := writeFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write toolchain env: %w", err)
	}
	return nil
}
