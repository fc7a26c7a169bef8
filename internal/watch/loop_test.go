package watch_test

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/adapters/telemetry"
	"github.com/wireit-go/wireit/internal/analyzer"
	"github.com/wireit-go/wireit/internal/cache/local"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/executor"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"github.com/wireit-go/wireit/internal/globutil"
	"github.com/wireit-go/wireit/internal/manifest"
	"github.com/wireit-go/wireit/internal/supervisor"
	"github.com/wireit-go/wireit/internal/workerpool"
	"github.com/wireit-go/wireit/internal/watch"
)

// fakeWatcher never emits events; it only exists so Loop.Run's Start/Stop
// and SetGroups calls have something to call.
type fakeWatcher struct {
	groups [][]ports.WatchGroup
}

func (f *fakeWatcher) SetGroups(groups []ports.WatchGroup) error {
	f.groups = append(f.groups, groups)
	return nil
}
func (f *fakeWatcher) Start(context.Context) error { return nil }
func (f *fakeWatcher) Stop() error                 { return nil }
func (f *fakeWatcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {}
}

type fakeRenderer struct{ plans int }

func (f *fakeRenderer) Start(context.Context) error { return nil }
func (f *fakeRenderer) Stop() error                 { return nil }
func (f *fakeRenderer) Wait() error                 { return nil }
func (f *fakeRenderer) OnPlanEmit(_ []string, _ map[string][]string, _ string) {
	f.plans++
}
func (f *fakeRenderer) OnScriptStart(string, string, string, time.Time)              {}
func (f *fakeRenderer) OnScriptLog(string, []byte, bool)                             {}
func (f *fakeRenderer) OnScriptComplete(string, time.Time, ports.ExecutionOutcome, error) {}

func newExecutorFactory(t *testing.T, rootDir string, renderer ports.Renderer) func() *executor.Executor {
	t.Helper()
	glob := globutil.New()
	return func() *executor.Executor {
		return executor.New(executor.Config{
			RootDir:      rootDir,
			Tracer:       telemetry.NewTracer("watch-loop-test"),
			Renderer:     renderer,
			Cache:        local.New(filepath.Join(rootDir, ".wireit-cache")),
			Store:        executor.NewFileStateStore(),
			Pool:         workerpool.New(runtime.NumCPU()),
			Glob:         glob,
			Fingerprints: fingerprint.NewComputer(glob, "go-test"),
			Supervisors:  supervisor.NewFactory(),
		})
	}
}

func TestLoop_Run_ExecutesOnceThenExitsOnCancel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(`{
		"scripts": {"build": "wireit"},
		"wireit": {"build": {"command": "true"}}
	}`), 0o644))

	renderer := &fakeRenderer{}
	fw := &fakeWatcher{}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &watch.Loop{
		Loader:      manifest.NewLoader(),
		Glob:        globutil.New(),
		Watcher:     fw,
		Renderer:    renderer,
		Printer:     analyzer.NewPrinter(dir),
		NewExecutor: newExecutorFactory(t, dir, renderer),
		PackageDir:  dir,
		ScriptName:  "build",
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return renderer.plans >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancellation")
	}
}

func TestLoop_Run_AnalysisFailureLeavesLoopRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(`{
		"scripts": {"build": "tsc"}
	}`), 0o644))

	renderer := &fakeRenderer{}
	fw := &fakeWatcher{}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &watch.Loop{
		Loader:      manifest.NewLoader(),
		Glob:        globutil.New(),
		Watcher:     fw,
		Renderer:    renderer,
		Printer:     analyzer.NewPrinter(dir),
		NewExecutor: newExecutorFactory(t, dir, renderer),
		PackageDir:  dir,
		ScriptName:  "build",
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, renderer.plans, "OnPlanEmit must not fire when analysis fails")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancellation")
	}
}
