package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

const (
	ExitSuccess           = 0
	ExitEmbedFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
	ExitStale             = 5
)

type ExecutionMode string

const (
	// ExecutionModeIncremental reuses cached renders and leaves unchanged
	// outputs untouched.
	ExecutionModeIncremental ExecutionMode = "incremental"
	// ExecutionModeClean renders and rewrites every output.
	ExecutionModeClean ExecutionMode = "clean"
	// ExecutionModeCheck compares renders with existing outputs and writes
	// nothing.
	ExecutionModeCheck ExecutionMode = "check"
)

// DefaultManifest is the manifest name looked up under WorkDir.
const DefaultManifest = "binembed.yaml"

type TraceConfig struct {
	Enabled bool
	Path    string
}

// CLIInvocation is the fully canonicalized, deterministic description of a run.
//
// All paths are Clean and relative paths are resolved against WorkDir, which
// must be absolute. The process working directory is never consulted.
type CLIInvocation struct {
	WorkDir       string
	ManifestPath  string
	BuildDir      string
	CacheDir      string
	SourcesFile   string
	SourcesFormat string
	ToolchainEnv  string
	ExecutionMode ExecutionMode
	Jobs          int
	Trace         TraceConfig
	LogLevel      string
	LogFormat     string

	// ComponentManager overrides the toolchain component manager switch:
	// "" leaves it alone, "on" or "off" force it.
	ComponentManager string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ErrHelp is returned when --help was requested.
var ErrHelp = pflag.ErrHelp

// newFlagSet declares every flag ParseInvocation understands.
func newFlagSet(inv *rawInvocation) *pflag.FlagSet {
	fs := pflag.NewFlagSet("binembed", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.StringVar(&inv.workDir, "workdir", "", "absolute project working directory (required)")
	fs.StringVar(&inv.manifest, "manifest", DefaultManifest, "resource manifest (YAML)")
	fs.StringVar(&inv.buildDir, "build-dir", "", "output directory for generated units (overrides manifest)")
	fs.StringVar(&inv.cacheDir, "cache-dir", "", "content cache directory (incremental mode only)")
	fs.StringVar(&inv.sourcesFile, "sources-file", "", "file listing generated units for the build (overrides manifest)")
	fs.StringVar(&inv.sourcesFormat, "sources-format", "", "sources file syntax: list|cmake|make (overrides manifest)")
	fs.StringVar(&inv.toolchainEnv, "toolchain-env", "", "dotenv file with extra toolchain variables")
	fs.StringVar(&inv.componentManager, "component-manager", "", "force the toolchain component manager: on|off")
	fs.StringVar(&inv.mode, "mode", string(ExecutionModeIncremental), "execution mode: incremental|clean|check")
	fs.IntVarP(&inv.jobs, "jobs", "j", 1, "number of resources processed concurrently")
	fs.StringVar(&inv.trace, "trace", "", "write a canonical JSON trace to this path")
	fs.StringVar(&inv.logLevel, "log-level", "info", "log level: debug|info|warn|error|off")
	fs.StringVar(&inv.logFormat, "log-format", "pretty", "log format: pretty|json")
	return fs
}

type rawInvocation struct {
	workDir          string
	manifest         string
	buildDir         string
	cacheDir         string
	sourcesFile      string
	sourcesFormat    string
	toolchainEnv     string
	componentManager string
	mode             string
	jobs             int
	trace            string
	logLevel         string
	logFormat        string
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
//
// Determinism goals:
//   - Does not read env vars.
//   - Does not read/assume the process CWD.
//   - Requires WorkDir to be explicit and absolute.
func ParseInvocation(args []string) (CLIInvocation, error) {
	var raw rawInvocation
	fs := newFlagSet(&raw)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CLIInvocation{}, err
		}
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return CLIInvocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if strings.TrimSpace(raw.workDir) == "" {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	workDir := filepath.Clean(raw.workDir)
	if !filepath.IsAbs(workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	mode, err := parseExecutionMode(raw.mode)
	if err != nil {
		return CLIInvocation{}, err
	}
	if raw.jobs <= 0 {
		return CLIInvocation{}, invalidInvocationf("--jobs must be > 0 (got %d)", raw.jobs)
	}
	switch strings.ToLower(raw.logFormat) {
	case "pretty", "json":
	default:
		return CLIInvocation{}, invalidInvocationf("invalid --log-format %q (expected pretty|json)", raw.logFormat)
	}
	componentManager := strings.ToLower(strings.TrimSpace(raw.componentManager))
	switch componentManager {
	case "", "on", "off":
	default:
		return CLIInvocation{}, invalidInvocationf("invalid --component-manager %q (expected on|off)", raw.componentManager)
	}

	inv := CLIInvocation{
		WorkDir:          workDir,
		ExecutionMode:    mode,
		Jobs:             raw.jobs,
		SourcesFormat:    raw.sourcesFormat,
		LogLevel:         raw.logLevel,
		LogFormat:        strings.ToLower(raw.logFormat),
		ComponentManager: componentManager,
	}

	if inv.ManifestPath, err = resolveUnderWorkDir(workDir, raw.manifest); err != nil {
		return CLIInvocation{}, err
	}
	optional := []struct {
		raw string
		dst *string
	}{
		{raw.buildDir, &inv.BuildDir},
		{raw.cacheDir, &inv.CacheDir},
		{raw.sourcesFile, &inv.SourcesFile},
		{raw.toolchainEnv, &inv.ToolchainEnv},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.raw) == "" {
			continue
		}
		if *o.dst, err = resolveUnderWorkDir(workDir, o.raw); err != nil {
			return CLIInvocation{}, err
		}
	}
	if strings.TrimSpace(raw.trace) != "" {
		resolvedTrace, err := resolveUnderWorkDir(workDir, raw.trace)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.Trace = TraceConfig{Enabled: true, Path: resolvedTrace}
	}

	return inv, nil
}

func parseExecutionMode(raw string) (ExecutionMode, error) {
	n := strings.ToLower(strings.TrimSpace(raw))
	switch ExecutionMode(n) {
	case ExecutionModeIncremental, ExecutionModeClean, ExecutionModeCheck:
		return ExecutionMode(n), nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected incremental|clean|check)", raw)
	}
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	// WorkDir is absolute, so Join does not consult the process CWD.
	return filepath.Join(workDir, clean), nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, pflag.ErrHelp) {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	return ExitInternalError
}

// Usage returns the flag help text.
func Usage() string {
	var raw rawInvocation
	fs := newFlagSet(&raw)
	return "Usage: binembed --workdir DIR [flags]\n\n" + fs.FlagUsages()
}
