// Package wiring is the composition root: it constructs every adapter for
// one CLI invocation and wires them into ready-to-run executor
// configuration.
package wiring

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"

	"github.com/wireit-go/wireit/internal/adapters/linear"
	"github.com/wireit-go/wireit/internal/adapters/logger"
	"github.com/wireit-go/wireit/internal/adapters/telemetry"
	"github.com/wireit-go/wireit/internal/adapters/watcher"
	"github.com/wireit-go/wireit/internal/cache/local"
	"github.com/wireit-go/wireit/internal/cache/s3"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/executor"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"github.com/wireit-go/wireit/internal/globutil"
	"github.com/wireit-go/wireit/internal/manifest"
	"github.com/wireit-go/wireit/internal/supervisor"
	"github.com/wireit-go/wireit/internal/workerpool"
)

// CacheKind selects a ports.Cache backend.
type CacheKind string

const (
	CacheLocal CacheKind = "local"
	CacheS3    CacheKind = "s3"
	CacheNone  CacheKind = "none"
)

// tracerName identifies the OpenTelemetry instrumentation scope for every
// span this tool opens.
const tracerName = "github.com/wireit-go/wireit"

// localCacheDirName is the directory, relative to RootDir, holding the
// local cache backend's blobs when CacheKind is CacheLocal.
const localCacheDirName = ".wireit-cache"

// Options configures one invocation's engine. RootDir is the directory
// containing the entrypoint package's manifest.
type Options struct {
	RootDir     string
	Parallelism int
	FailureMode ports.FailureMode

	Cache    CacheKind
	S3Bucket string
	S3Prefix string

	Stdout io.Writer
	Stderr io.Writer
}

// Engine holds the constructed adapters for one invocation, ready to build
// one Executor per analyze-execute cycle.
type Engine struct {
	Logger       *logger.Logger
	Loader       ports.ManifestLoader
	Glob         ports.GlobMatcher
	Fingerprints *fingerprint.Computer
	Store        ports.StateStore
	Cache        ports.Cache
	Pool         ports.WorkerPool
	Supervisors  ports.SupervisorFactory
	Tracer       ports.Tracer
	Renderer     ports.Renderer
	Watcher      *watcher.Watcher

	rootDir        string
	failureMode    ports.FailureMode
	tracerProvider *sdktrace.TracerProvider
}

// Build constructs every adapter for opts. The returned Engine's Shutdown
// must be called once the invocation is finished.
func Build(opts Options) (*Engine, error) {
	if opts.Parallelism < 1 {
		opts.Parallelism = runtime.NumCPU()
	}

	glob := globutil.New()
	cache, err := buildCache(opts)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := watcher.NewWatcher()
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	e := &Engine{
		Logger:         logger.New(),
		Loader:         manifest.NewLoader(),
		Glob:           glob,
		Fingerprints:   fingerprint.NewComputer(glob, runtime.Version()),
		Store:          executor.NewFileStateStore(),
		Cache:          cache,
		Pool:           workerpool.New(opts.Parallelism),
		Supervisors:    supervisor.NewFactory(),
		Tracer:         telemetry.NewTracer(tracerName),
		Renderer:       linear.NewRenderer(opts.Stdout, opts.Stderr),
		Watcher:        fsWatcher,
		rootDir:        opts.RootDir,
		failureMode:    opts.FailureMode,
		tracerProvider: tp,
	}
	return e, nil
}

func buildCache(opts Options) (ports.Cache, error) {
	switch opts.Cache {
	case CacheS3:
		if opts.S3Bucket == "" {
			return nil, fmt.Errorf("s3 cache selected but no bucket configured")
		}
		return s3.New(opts.S3Bucket, opts.S3Prefix)
	case CacheNone:
		return nil, nil
	case CacheLocal, "":
		return local.New(filepath.Join(opts.RootDir, localCacheDirName)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Cache)
	}
}

// NewExecutor builds a fresh Executor sharing this Engine's long-lived
// collaborators (cache, state store, worker pool, watcher). A watch-mode
// driving loop calls this once per analyze-execute cycle so execution
// memoization never survives a re-run.
func (e *Engine) NewExecutor() *executor.Executor {
	return executor.New(executor.Config{
		RootDir:      e.rootDir,
		Tracer:       e.Tracer,
		Renderer:     e.Renderer,
		Cache:        e.Cache,
		Store:        e.Store,
		Pool:         e.Pool,
		Glob:         e.Glob,
		Fingerprints: e.Fingerprints,
		Supervisors:  e.Supervisors,
		FailureMode:  e.failureMode,
	})
}

// Shutdown stops the renderer and flushes the OpenTelemetry tracer
// provider. It should be called exactly once, after the invocation's
// executor(s) have finished.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.Renderer.Stop(); err != nil {
		return err
	}
	if err := e.Renderer.Wait(); err != nil {
		return err
	}
	return e.tracerProvider.Shutdown(ctx)
}
