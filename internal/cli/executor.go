package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"binembed/internal/core"
	"binembed/internal/logging"
	"binembed/internal/orchestrator"
	"binembed/internal/pipeline"
	"binembed/internal/plan"
	"binembed/internal/trace"
)

type CLIResult struct {
	ExitCode int
	Result   *pipeline.Result
}

// Execute runs a canonical invocation, logging to stderr.
func Execute(ctx context.Context, inv CLIInvocation) (CLIResult, error) {
	return ExecuteWithOutput(ctx, inv, os.Stderr)
}

// ExecuteWithOutput maps a canonical CLIInvocation to a pipeline run.
//
// Responsibilities:
//   - Load and resolve the manifest.
//   - Validate the plan (symbol collisions) before any file I/O.
//   - Select encoder behavior from ExecutionMode.
//   - Register generated units with the build and write the toolchain env.
//   - Write the trace, if requested, even when the run fails.
//   - Translate outcomes to semantic exit codes.
func ExecuteWithOutput(ctx context.Context, inv CLIInvocation, logOut io.Writer) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError

	log, err := logging.New(logging.Config{Level: inv.LogLevel, Pretty: inv.LogFormat != "json", Out: logOut})
	if err != nil {
		res.ExitCode = ExitInvalidInvocation
		return res, err
	}

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			res.Result = nil
			execErr = fmt.Errorf("panic: %v", r)
		}
	}()

	manifest, err := LoadManifest(inv.ManifestPath)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	cfg, err := manifest.Resolve(inv.ManifestPath, inv)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	buildPlan, err := plan.FromPaths(cfg.Resources)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	recorder := trace.NewRecorder()
	defer func() {
		if !inv.Trace.Enabled {
			return
		}
		if err := writeTrace(inv.Trace.Path, recorder.Trace(buildPlan.Hash())); err != nil && execErr == nil {
			res.ExitCode = ExitEmbedFailure
			execErr = err
		}
	}()

	encoder := core.NewEncoder(cfg.ProjectRoot, cfg.BuildDir)
	encoder.Logger = log
	var emitter pipeline.Emitter = encoder
	switch inv.ExecutionMode {
	case ExecutionModeIncremental:
		encoder.WriteIfChanged = true
		if inv.CacheDir != "" {
			cache, err := newCache(inv.CacheDir)
			if err != nil {
				res.ExitCode = ExitConfigError
				return res, err
			}
			encoder.Cache = cache
		}
	case ExecutionModeClean:
	case ExecutionModeCheck:
		emitter = pipeline.Checker{Encoder: encoder}
	default:
		res.ExitCode = ExitInvalidInvocation
		return res, fmt.Errorf("unsupported mode %q", inv.ExecutionMode)
	}

	exec, err := pipeline.NewExecutor(buildPlan, encoder.Planner, emitter)
	if err != nil {
		return res, err
	}
	exec.Sink = recorder
	exec.Logger = log

	log.Info().
		Str("mode", string(inv.ExecutionMode)).
		Int("resources", buildPlan.Len()).
		Str("build_dir", cfg.BuildDir).
		Msg("embedding data files")

	result, err := exec.RunParallel(ctx, inv.Jobs)
	if err != nil {
		res.ExitCode = exitCodeForRunError(err)
		log.Error().Err(err).Msg("embedding failed")
		return res, err
	}
	res.Result = result

	if inv.ExecutionMode == ExecutionModeCheck {
		stale := result.Stale()
		if len(stale) > 0 {
			res.ExitCode = ExitStale
			return res, fmt.Errorf("%d generated unit(s) out of date", len(stale))
		}
		res.ExitCode = ExitSuccess
		return res, nil
	}

	if err := register(cfg, result, log); err != nil {
		res.ExitCode = ExitEmbedFailure
		return res, err
	}

	res.ExitCode = ExitSuccess
	return res, nil
}

// register hands every generated unit to the build and publishes the
// toolchain env.
func register(cfg *Config, result *pipeline.Result, log zerolog.Logger) error {
	reg := orchestrator.NewSourceListRegistrar(cfg.SourcesFile, cfg.SourcesFormat)
	if cfg.SourcesVariable != "" {
		reg.Variable = cfg.SourcesVariable
	}
	reg.RelativeTo = filepath.Dir(cfg.SourcesFile)
	for _, u := range result.Units {
		if err := reg.Register(u); err != nil {
			return err
		}
	}
	if err := reg.Commit(); err != nil {
		return err
	}
	log.Debug().Str("sources_file", cfg.SourcesFile).Int("units", len(result.Units)).Msg("registered sources")

	if len(cfg.ToolchainEnv) == 0 {
		return nil
	}
	if err := orchestrator.WriteToolchainEnv(cfg.ToolchainEnvFile, cfg.ToolchainEnv); err != nil {
		return err
	}
	for _, k := range cfg.ToolchainEnv.Keys() {
		log.Info().Str("var", k).Str("value", cfg.ToolchainEnv[k]).Msg("toolchain env")
	}
	return nil
}

func newCache(dir string) (core.Cache, error) {
	near, err := core.NewMemoryCache(core.DefaultMemoryCacheSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &core.TieredCache{Near: near, Far: core.NewFileCache(dir)}, nil
}

func exitCodeForRunError(err error) int {
	switch {
	case errors.Is(err, core.ErrIO):
		return ExitEmbedFailure
	case errors.Is(err, core.ErrInvalidPath), errors.Is(err, core.ErrInvalidSymbol), errors.Is(err, core.ErrSymbolCollision):
		return ExitConfigError
	default:
		return ExitInternalError
	}
}

func writeTrace(path string, t trace.ExecutionTrace) error {
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
