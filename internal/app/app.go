// Package app implements the CLI's business logic: resolving a script
// graph, announcing and running the plan, driving watch mode, and cleaning
// persisted state. It is the composition point between internal/wiring's
// constructed adapters and the analyzer/executor/watch core.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wireit-go/wireit/internal/analyzer"
	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/watch"
	"github.com/wireit-go/wireit/internal/wiring"
)

// ErrAnalysisFailed is returned by Run when the script graph fails to
// resolve; diagnostics have already been printed to Stderr by the time this
// is returned, so callers should not render err again.
var ErrAnalysisFailed = errors.New("analysis failed")

// RunOptions configures one Run invocation.
type RunOptions struct {
	Watch       bool
	Parallelism int
	FailureMode ports.FailureMode

	Cache    wiring.CacheKind
	S3Bucket string
	S3Prefix string

	Stdout io.Writer
	Stderr io.Writer
}

// App implements the CLI commands' business logic.
type App struct{}

// New constructs an App.
func New() *App {
	return &App{}
}

// Run resolves scriptName in packageDir and executes it, or, if
// opts.Watch is set, drives repeated analyze-execute cycles until ctx is
// canceled.
func (a *App) Run(ctx context.Context, packageDir, scriptName string, opts RunOptions) error {
	engine, err := wiring.Build(wiring.Options{
		RootDir:     packageDir,
		Parallelism: opts.Parallelism,
		FailureMode: opts.FailureMode,
		Cache:       opts.Cache,
		S3Bucket:    opts.S3Bucket,
		S3Prefix:    opts.S3Prefix,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() { _ = engine.Shutdown(context.Background()) }()

	if err := engine.Renderer.Start(ctx); err != nil {
		return err
	}

	if opts.Watch {
		loop := &watch.Loop{
			Loader:      engine.Loader,
			Glob:        engine.Glob,
			Watcher:     engine.Watcher,
			Renderer:    engine.Renderer,
			Printer:     analyzer.NewPrinter(packageDir),
			NewExecutor: engine.NewExecutor,
			PackageDir:  packageDir,
			ScriptName:  scriptName,
		}
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	az := analyzer.New(engine.Loader, packageDir)
	root, diags := az.Resolve(packageDir, scriptName)
	if diags.HasErrors() {
		printer := analyzer.NewPrinter(packageDir)
		var b strings.Builder
		printer.Print(&b, diags)
		fmt.Fprint(opts.Stderr, b.String())
		return ErrAnalysisFailed
	}

	order, deps := analyzer.Flatten(root, packageDir)
	engine.Renderer.OnPlanEmit(order, deps, packageDir)

	exec := engine.NewExecutor()
	return exec.ExecuteTopLevel(ctx, root)
}

// Clean removes every persisted .wireit state directory found under
// packageDir, without descending into node_modules or .git.
func (a *App) Clean(_ context.Context, packageDir string) error {
	var toRemove []string
	err := filepath.WalkDir(packageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip inaccessible directories, keep cleaning the rest
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "node_modules", ".git":
			return fs.SkipDir
		case domain.StateDirName:
			toRemove = append(toRemove, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, dir := range toRemove {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}
