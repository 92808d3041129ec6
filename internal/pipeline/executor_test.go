package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"binembed/internal/core"
	"binembed/internal/plan"
	"binembed/internal/trace"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, content, 0o644))
}

func newExecutor(t *testing.T, root, buildDir string, paths []string) (*Executor, *trace.Recorder) {
	t.Helper()
	p, err := plan.FromPaths(paths)
	require.NoError(t, err)
	enc := core.NewEncoder(root, buildDir)
	exec, err := NewExecutor(p, enc.Planner, enc)
	require.NoError(t, err)
	rec := trace.NewRecorder()
	exec.Sink = rec
	return exec, rec
}

func TestRunSerial_MissingInputIsSkippedAndRunContinues(t *testing.T) {
	root := t.TempDir()
	buildDir := t.TempDir()
	writeFile(t, root, "data/index.html", []byte("<html/>"))
	writeFile(t, root, "data/js/app.js", []byte("go()"))

	exec, rec := newExecutor(t, root, buildDir, []string{"data/index.html", "data/ota.html", "data/js/app.js"})
	res, err := exec.RunSerial(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Units, 2)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, "data/ota.html", res.Skipped[0].Resource)
	require.True(t, errors.Is(res.Skipped[0].Err, core.ErrMissingInput))
	require.Equal(t, []string{
		filepath.Join(buildDir, "index.html.S"),
		filepath.Join(buildDir, "app.js.S"),
	}, res.OutputPaths())

	_, err = os.Stat(filepath.Join(buildDir, "ota.html.S"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	tr := rec.Trace(res.PlanHash)
	require.Len(t, tr.Events, 3)
	kinds := map[string]trace.TraceEventKind{}
	for _, e := range tr.Events {
		kinds[e.Resource] = e.Kind
	}
	require.Equal(t, trace.EventResourceSkipped, kinds["data/ota.html"])
	require.Equal(t, trace.EventResourceGenerated, kinds["data/index.html"])
}

func TestRunSerial_IOFailureAbortsRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.css", []byte("a"))
	writeFile(t, root, "c.css", []byte("c"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b.css"), 0o755))

	buildDir := t.TempDir()
	exec, _ := newExecutor(t, root, buildDir, []string{"a.css", "b.css", "c.css"})
	_, err := exec.RunSerial(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrIO), "got %v", err)

	_, err = os.Stat(filepath.Join(buildDir, "c.css.S"))
	require.True(t, errors.Is(err, os.ErrNotExist), "run must stop at the first fatal error")
}

func TestRunParallel_ByteIdenticalToSerial(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		rel := fmt.Sprintf("assets/file%02d.bin", i)
		content := make([]byte, i*7)
		for j := range content {
			content[j] = byte(i + j)
		}
		writeFile(t, root, rel, content)
		paths = append(paths, rel)
	}
	paths = append(paths, "assets/missing.bin")

	serialDir := t.TempDir()
	serial, serialRec := newExecutor(t, root, serialDir, paths)
	sres, err := serial.RunSerial(context.Background())
	require.NoError(t, err)

	parallelDir := t.TempDir()
	par, parRec := newExecutor(t, root, parallelDir, paths)
	pres, err := par.RunParallel(context.Background(), 4)
	require.NoError(t, err)

	require.Len(t, pres.Units, len(sres.Units))
	require.Len(t, pres.Skipped, 1)
	for i := range sres.Units {
		require.Equal(t, sres.Units[i].Source, pres.Units[i].Source, "plan order must be kept")
		a, err := os.ReadFile(sres.Units[i].OutputPath)
		require.NoError(t, err)
		b, err := os.ReadFile(pres.Units[i].OutputPath)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}

	h1, err := serialRec.Trace(sres.PlanHash).Hash()
	require.NoError(t, err)
	h2, err := parRec.Trace(pres.PlanHash).Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

type failingEmitter struct {
	failOn string
	calls  atomic.Int32
}

func (f *failingEmitter) Emit(spec core.ResourceSpec) (*core.EmbeddedUnit, error) {
	f.calls.Add(1)
	if spec.Path() == f.failOn {
		return nil, &core.EmbedError{Kind: core.ErrIO, Path: spec.Path(), Msg: "injected"}
	}
	return &core.EmbeddedUnit{SymbolBase: spec.SymbolBase, Source: spec.Path(), Status: core.StatusGenerated}, nil
}

func TestRunParallel_ReturnsFatalError(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for i := 0; i < 10; i++ {
		rel := fmt.Sprintf("f%d.txt", i)
		writeFile(t, root, rel, []byte("x"))
		paths = append(paths, rel)
	}
	p, err := plan.FromPaths(paths)
	require.NoError(t, err)

	em := &failingEmitter{failOn: "f3.txt"}
	exec, err := NewExecutor(p, core.NewPlanner(root), em)
	require.NoError(t, err)

	_, err = exec.RunParallel(context.Background(), 3)
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrIO), "got %v", err)
}

func TestRunSerial_HonorsCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("a"))
	exec, _ := newExecutor(t, root, t.TempDir(), []string{"a.txt"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.RunSerial(ctx)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRunParallel_RejectsNonPositiveConcurrency(t *testing.T) {
	exec, _ := newExecutor(t, t.TempDir(), t.TempDir(), nil)
	_, err := exec.RunParallel(context.Background(), 0)
	require.Error(t, err)
}

func TestChecker_DoesNotWrite(t *testing.T) {
	root := t.TempDir()
	buildDir := t.TempDir()
	writeFile(t, root, "a.css", []byte("a{}"))

	p, err := plan.FromPaths([]string{"a.css"})
	require.NoError(t, err)
	enc := core.NewEncoder(root, buildDir)
	exec, err := NewExecutor(p, enc.Planner, Checker{Encoder: enc})
	require.NoError(t, err)

	res, err := exec.RunSerial(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Stale(), 1)
	require.Equal(t, 1, res.Count(core.StatusStale))

	entries, err := os.ReadDir(buildDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestNewExecutor_ValidatesCollaborators(t *testing.T) {
	p, err := plan.New(nil)
	require.NoError(t, err)
	enc := core.NewEncoder(t.TempDir(), t.TempDir())

	_, err = NewExecutor(nil, enc.Planner, enc)
	require.Error(t, err)
	_, err = NewExecutor(p, nil, enc)
	require.Error(t, err)
	_, err = NewExecutor(p, enc.Planner, nil)
	require.Error(t, err)
}
