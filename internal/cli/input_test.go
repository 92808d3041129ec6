package cli

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseInvocation_DeterministicStruct(t *testing.T) {
	workDir := t.TempDir()
	args := []string{
		"--workdir", workDir,
		"--manifest", "conf/../binembed.yaml",
		"--cache-dir", "./cache/..//cache",
		"--build-dir", "out/./",
		"--mode", "incremental",
		"--trace", "traces/../trace.json",
	}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected identical invocations, got\n%#v\n%#v", inv1, inv2)
	}

	if inv1.WorkDir != filepath.Clean(workDir) {
		t.Fatalf("workdir not canonicalized: %q", inv1.WorkDir)
	}
	if inv1.ManifestPath != filepath.Join(workDir, "binembed.yaml") {
		t.Fatalf("manifest path not resolved/canonicalized: %q", inv1.ManifestPath)
	}
	if inv1.CacheDir != filepath.Join(workDir, "cache") {
		t.Fatalf("cache dir not resolved/canonicalized: %q", inv1.CacheDir)
	}
	if inv1.BuildDir != filepath.Join(workDir, "out") {
		t.Fatalf("build dir not resolved/canonicalized: %q", inv1.BuildDir)
	}
	if !inv1.Trace.Enabled || inv1.Trace.Path != filepath.Join(workDir, "trace.json") {
		t.Fatalf("trace not resolved/canonicalized: %#v", inv1.Trace)
	}
}

func TestParseInvocation_Defaults(t *testing.T) {
	workDir := t.TempDir()
	inv, err := ParseInvocation([]string{"--workdir", workDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ManifestPath != filepath.Join(workDir, DefaultManifest) {
		t.Fatalf("expected default manifest, got %q", inv.ManifestPath)
	}
	if inv.ExecutionMode != ExecutionModeIncremental {
		t.Fatalf("expected incremental mode, got %q", inv.ExecutionMode)
	}
	if inv.Jobs != 1 {
		t.Fatalf("expected sequential default, got %d jobs", inv.Jobs)
	}
	if inv.BuildDir != "" || inv.CacheDir != "" || inv.SourcesFile != "" || inv.Trace.Enabled {
		t.Fatalf("optional paths should stay unset: %#v", inv)
	}
}

func TestParseInvocation_ResolvesRelativePathsAgainstWorkDir_NotCwd(t *testing.T) {
	workDir := t.TempDir()
	otherCwd := t.TempDir()

	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	if err := os.Chdir(otherCwd); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	args := []string{
		"--workdir", workDir,
		"--manifest", "m.yaml",
		"--cache-dir", "cache",
		"--build-dir", "out",
		"--sources-file", "srcs.txt",
		"--toolchain-env", "tc.env",
	}
	inv, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"manifest":      filepath.Join(workDir, "m.yaml"),
		"cache":         filepath.Join(workDir, "cache"),
		"build":         filepath.Join(workDir, "out"),
		"sources":       filepath.Join(workDir, "srcs.txt"),
		"toolchain-env": filepath.Join(workDir, "tc.env"),
	}
	got := map[string]string{
		"manifest":      inv.ManifestPath,
		"cache":         inv.CacheDir,
		"build":         inv.BuildDir,
		"sources":       inv.SourcesFile,
		"toolchain-env": inv.ToolchainEnv,
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected paths under workdir\nwant %#v\ngot  %#v", want, got)
	}
}

func TestParseInvocation_IgnoresEnvironmentVariables(t *testing.T) {
	workDir := t.TempDir()
	args := []string{"--workdir", workDir, "--mode", "clean"}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("IDF_COMPONENT_MANAGER", "0")
	t.Setenv("CLICOLOR", "1")
	t.Setenv("SOME_OTHER_VAR", "some value")

	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected env vars to not affect parsing, got\n%#v\n%#v", inv1, inv2)
	}
}

func TestParseInvocation_WorkDirIsMandatoryAndAbsolute(t *testing.T) {
	_, err := ParseInvocation([]string{"--mode", "clean"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != ExitInvalidInvocation {
		t.Fatalf("expected exit code %d, got %d", ExitInvalidInvocation, ExitCode(err))
	}

	_, err = ParseInvocation([]string{"--workdir", "relative"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != ExitInvalidInvocation {
		t.Fatalf("expected exit code %d, got %d", ExitInvalidInvocation, ExitCode(err))
	}
}

func TestParseInvocation_RejectsInvalidValues(t *testing.T) {
	workDir := t.TempDir()
	cases := [][]string{
		{"--mode", "turbo"},
		{"--jobs", "0"},
		{"-j", "-2"},
		{"--log-format", "xml"},
		{"--component-manager", "maybe"},
		{"--no-such-flag"},
		{"positional"},
	}
	for _, extra := range cases {
		args := append([]string{"--workdir", workDir}, extra...)
		_, err := ParseInvocation(args)
		if err == nil {
			t.Fatalf("%v: expected error", extra)
		}
		if ExitCode(err) != ExitInvalidInvocation {
			t.Fatalf("%v: expected exit code %d, got %d", extra, ExitInvalidInvocation, ExitCode(err))
		}
	}
}

func TestParseInvocation_NormalizesCase(t *testing.T) {
	inv, err := ParseInvocation([]string{
		"--workdir", t.TempDir(),
		"--mode", "CHECK",
		"--log-format", "JSON",
		"--component-manager", "Off",
		"-j", "4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ExecutionMode != ExecutionModeCheck || inv.LogFormat != "json" || inv.ComponentManager != "off" || inv.Jobs != 4 {
		t.Fatalf("unexpected invocation: %#v", inv)
	}
}

func TestParseInvocation_Help(t *testing.T) {
	_, err := ParseInvocation([]string{"--help"})
	if !errors.Is(err, ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
	if ExitCode(err) != ExitSuccess {
		t.Fatalf("help should exit 0, got %d", ExitCode(err))
	}
	if !strings.Contains(Usage(), "--workdir") {
		t.Fatalf("usage does not mention --workdir:\n%s", Usage())
	}
}
