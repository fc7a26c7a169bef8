// Package watch drives repeated analyze-execute cycles in response to
// filesystem change events: the "Watcher" component from the top-level
// design (distinct from internal/adapters/watcher, which only reports raw
// filesystem events).
package watch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wireit-go/wireit/internal/adapters/watcher"
	"github.com/wireit-go/wireit/internal/analyzer"
	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/executor"
	"github.com/wireit-go/wireit/internal/manifest"
)

// debounceWindow coalesces a burst of filesystem events (a save that
// touches several files, an editor's write-then-rename) into one
// re-analysis cycle instead of one per event.
const debounceWindow = 50 * time.Millisecond

// ExecutorFactory builds a fresh Executor for one analyze-execute cycle.
// Execution memoization must not survive across cycles, but the state
// store, cache, and worker pool it wraps do.
type ExecutorFactory func() *executor.Executor

// Loop implements the watch-mode driving loop described in the design:
// a stale flag set by filesystem events and cleared just before each
// analyze-execute cycle, and an executing flag preventing overlap.
type Loop struct {
	Loader      ports.ManifestLoader
	Glob        ports.GlobMatcher
	Watcher     ports.Watcher
	Renderer    ports.Renderer
	Printer     *analyzer.Printer
	NewExecutor ExecutorFactory
	PackageDir  string
	ScriptName  string
}

// Run executes analyze-execute cycles until ctx is canceled. It returns
// ctx.Err() on cancellation; it does not return on ordinary execution
// failures, which are reported through the Renderer/Printer collaborators
// and simply leave the script tree stale for the next filesystem event.
func (l *Loop) Run(ctx context.Context) error {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	stale := true
	executing := false
	var current atomic.Pointer[executor.Executor]

	go func() {
		<-ctx.Done()
		mu.Lock()
		cond.Broadcast()
		mu.Unlock()
	}()

	markStale := func(_ []string) {
		mu.Lock()
		stale = true
		cond.Broadcast()
		mu.Unlock()

		if exec := current.Load(); exec != nil {
			exec.Abort()
		}
	}
	debouncer := watcher.NewDebouncer(debounceWindow, markStale)

	go func() {
		for event := range l.Watcher.Events() {
			debouncer.Add(event.Path)
		}
	}()

	if err := l.Watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = l.Watcher.Stop() }()

	for {
		mu.Lock()
		for (!stale || executing) && ctx.Err() == nil {
			cond.Wait()
		}
		if ctx.Err() != nil {
			mu.Unlock()
			return ctx.Err()
		}
		stale = false
		executing = true
		mu.Unlock()

		l.runOnce(ctx, &current)

		mu.Lock()
		executing = false
		cond.Broadcast()
		mu.Unlock()
	}
}

func (l *Loop) runOnce(ctx context.Context, current *atomic.Pointer[executor.Executor]) {
	a := analyzer.New(l.Loader, l.PackageDir)
	root, diags := a.Resolve(l.PackageDir, l.ScriptName)
	if diags.HasErrors() {
		var b strings.Builder
		l.Printer.Print(&b, diags)
		return
	}

	if l.Renderer != nil {
		order, deps := analyzer.Flatten(root, l.PackageDir)
		l.Renderer.OnPlanEmit(order, deps, l.PackageDir)
	}

	exec := l.NewExecutor()
	current.Store(exec)
	defer current.Store(nil)

	if l.Watcher != nil {
		_ = l.Watcher.SetGroups(l.watchGroups(root))
	}

	_ = exec.ExecuteTopLevel(ctx, root)
}

// watchGroups computes the union of every transitively referenced package
// manifest, plus every declared files glob, grouped by package directory;
// negated patterns get their own group per ports.GlobMatcher.Groups.
func (l *Loop) watchGroups(root *domain.ScriptConfig) []ports.WatchGroup {
	visited := map[string]bool{}
	manifests := map[string]bool{}
	var groups []ports.WatchGroup

	var walk func(node *domain.ScriptConfig)
	walk = func(node *domain.ScriptConfig) {
		key := node.Reference.Key()
		if visited[key] {
			return
		}
		visited[key] = true

		dir := node.Reference.PackageDir.String()
		manifests[dir] = true

		if node.Kind == domain.OneShot && len(node.Files) > 0 {
			for _, patternGroup := range l.Glob.Groups(node.Files) {
				groups = append(groups, ports.WatchGroup{PackageDir: dir, Patterns: patternGroup})
			}
		}

		for _, dep := range node.Dependencies {
			walk(dep.Child)
		}
	}
	walk(root)

	for dir := range manifests {
		groups = append(groups, ports.WatchGroup{PackageDir: dir, Patterns: []string{manifest.FileName}})
	}
	return groups
}
