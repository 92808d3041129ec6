package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"binembed/internal/orchestrator"
)

// DefaultResources is the web UI asset set embedded when a manifest declares
// no resources of its own.
var DefaultResources = []string{
	"data/index.html",
	"data/config.html",
	"data/monitor.html",
	"data/ota.html",
	"data/logs.html",
	"data/network.html",
	"data/css/style.css",
	"data/js/api.js",
	"data/js/utils.js",
	"data/js/app.js",
	"data/js/config.js",
	"data/js/monitor.js",
	"data/js/ota.js",
	"data/js/logs.js",
	"data/js/network.js",
}

const (
	defaultBuildDir         = "build/binembed"
	defaultToolchainEnvFile = "toolchain.env"
)

// Manifest is the on-disk resource declaration.
type Manifest struct {
	ProjectRoot      string            `yaml:"project_root"`
	BuildDir         string            `yaml:"build_dir"`
	Resources        []string          `yaml:"resources"`
	SourcesFile      string            `yaml:"sources_file"`
	SourcesFormat    string            `yaml:"sources_format"`
	SourcesVariable  string            `yaml:"sources_variable"`
	ToolchainEnv     map[string]string `yaml:"toolchain_env"`
	ToolchainEnvFile string            `yaml:"toolchain_env_file"`
}

// Config is a manifest with every path made absolute and every default
// applied.
type Config struct {
	ProjectRoot      string
	BuildDir         string
	Resources        []string
	SourcesFile      string
	SourcesFormat    orchestrator.SourcesFormat
	SourcesVariable  string
	ToolchainEnv     orchestrator.ToolchainEnv
	ToolchainEnvFile string
}

// ConfigError marks manifest problems; it maps to ExitConfigError.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// LoadManifest reads and parses the manifest at path.
//
// The loader is deterministic:
//   - Disallows unknown fields (to avoid silent divergence).
//   - Rejects a second YAML document.
//   - Does not consult environment variables.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read manifest: %w", err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, configErrorf("parse manifest: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, configErrorf("parse manifest: trailing document")
		}
		return nil, configErrorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Resolve applies defaults and invocation overrides. Relative manifest paths
// resolve against the manifest's directory; overrides are already absolute.
func (m *Manifest) Resolve(manifestPath string, inv CLIInvocation) (*Config, error) {
	base := filepath.Dir(manifestPath)
	abs := func(p, def string) string {
		if strings.TrimSpace(p) == "" {
			p = def
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	cfg := &Config{
		ProjectRoot:     abs(m.ProjectRoot, "."),
		BuildDir:        abs(m.BuildDir, defaultBuildDir),
		SourcesVariable: m.SourcesVariable,
		ToolchainEnv:    orchestrator.ToolchainEnv(m.ToolchainEnv).Clone(),
	}
	if inv.BuildDir != "" {
		cfg.BuildDir = inv.BuildDir
	}

	cfg.Resources = append([]string(nil), m.Resources...)
	if len(cfg.Resources) == 0 {
		cfg.Resources = append([]string(nil), DefaultResources...)
	}

	rawFormat := m.SourcesFormat
	if inv.SourcesFormat != "" {
		rawFormat = inv.SourcesFormat
	}
	format, err := orchestrator.ParseSourcesFormat(rawFormat)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	cfg.SourcesFormat = format

	switch {
	case inv.SourcesFile != "":
		cfg.SourcesFile = inv.SourcesFile
	case m.SourcesFile != "":
		cfg.SourcesFile = abs(m.SourcesFile, "")
	default:
		cfg.SourcesFile = filepath.Join(cfg.BuildDir, defaultSourcesName(format))
	}

	if m.ToolchainEnvFile != "" {
		cfg.ToolchainEnvFile = abs(m.ToolchainEnvFile, "")
	} else {
		cfg.ToolchainEnvFile = filepath.Join(cfg.BuildDir, defaultToolchainEnvFile)
	}

	if inv.ToolchainEnv != "" {
		extra, err := orchestrator.ReadToolchainEnv(inv.ToolchainEnv)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		cfg.ToolchainEnv = cfg.ToolchainEnv.Merge(extra)
	}
	switch inv.ComponentManager {
	case "on":
		cfg.ToolchainEnv = cfg.ToolchainEnv.WithComponentManager(true)
	case "off":
		cfg.ToolchainEnv = cfg.ToolchainEnv.WithComponentManager(false)
	}
	if err := cfg.ToolchainEnv.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	return cfg, nil
}

func defaultSourcesName(format orchestrator.SourcesFormat) string {
	switch format {
	case orchestrator.FormatCMake:
		return "embedded_sources.cmake"
	case orchestrator.FormatMake:
		return "embedded_sources.mk"
	default:
		return "embedded_sources.txt"
	}
}
