// Package executor runs a resolved script graph: dispatching each script to
// its no-command, one-shot, or service execution variant, memoizing one
// result per script reference, and applying the configured failure-mode
// policy across independent subtrees.
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"go.trai.ch/zerr"
)

var (
	errAborted             = zerr.New("execution aborted before this script's result was available")
	errSkippedAfterFailure = zerr.New("execution skipped: a sibling failed under the no-new failure policy")
)

// Config wires an Executor to its collaborators. Renderer may be nil, in
// which case no live progress events are emitted.
type Config struct {
	RootDir      string
	Tracer       ports.Tracer
	Renderer     ports.Renderer
	Cache        ports.Cache
	Store        ports.StateStore
	Pool         ports.WorkerPool
	Glob         ports.GlobMatcher
	Fingerprints *fingerprint.Computer
	Supervisors  ports.SupervisorFactory
	FailureMode  ports.FailureMode
}

// Executor is the per-invocation coordinator satisfying ports.Executor.
type Executor struct {
	cfg Config

	mu      sync.Mutex
	cond    *sync.Cond
	records map[string]*record

	abortOnce sync.Once
	abortCh   chan struct{}

	noNew atomic.Bool

	entrypointMu sync.Mutex
	entrypoints  []ports.ServiceHandle
}

// New constructs an Executor ready to run a single invocation.
func New(cfg Config) *Executor {
	e := &Executor{
		cfg:     cfg,
		records: map[string]*record{},
		abortCh: make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// ExecuteTopLevel runs root to completion and, if root's resolution
// discovers any top-level services (services reachable from root through
// no-command scripts only, with nothing command-bearing in between), grants
// each an entrypoint consumer held until Abort is called.
func (e *Executor) ExecuteTopLevel(ctx context.Context, root *domain.ScriptConfig) error {
	result := e.Execute(ctx, root)

	if root.Kind == domain.Service {
		rec := e.recordFor(root.Reference.Key())
		if rec != nil && rec.service != nil {
			e.holdEntrypoint(rec.service.acquireEntrypoint())
		}
	}
	for _, handle := range result.Services {
		e.holdEntrypoint(handle)
	}

	if result.Outcome == ports.OutcomeFailed {
		return result.Err
	}
	return nil
}

func (e *Executor) holdEntrypoint(handle ports.ServiceHandle) {
	e.entrypointMu.Lock()
	e.entrypoints = append(e.entrypoints, handle)
	e.entrypointMu.Unlock()
}

// Execute runs or returns the memoized result for script.
func (e *Executor) Execute(ctx context.Context, script *domain.ScriptConfig) ports.ExecutionResult {
	return e.executeWithParent(ctx, script, "")
}

func (e *Executor) executeWithParent(ctx context.Context, script *domain.ScriptConfig, parentLabel string) ports.ExecutionResult {
	key := script.Reference.Key()

	e.mu.Lock()
	rec, ok := e.records[key]
	created := false
	if !ok {
		rec = newRecord()
		if script.Kind == domain.Service {
			rec.service = newServiceExecution(e, script)
		}
		e.records[key] = rec
		created = true
		e.cond.Broadcast()
	}
	e.mu.Unlock()

	if created {
		go e.run(ctx, script, rec, parentLabel)
	}

	result, ok := rec.wait(e.abortCh)
	if !ok {
		return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: errAborted}
	}
	return result
}

// recordFor returns the execution record for key if it has already been
// created, or nil otherwise. Used only by ExecuteTopLevel after root's own
// Execute call has returned, so root's record is guaranteed to exist.
func (e *Executor) recordFor(key string) *record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records[key]
}

// waitForRecord blocks until a record exists for key, however it was
// created. Used by a service's consumer-tracking goroutines, which must
// never themselves trigger the consumer's execution.
func (e *Executor) waitForRecord(key string) *record {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		if rec, ok := e.records[key]; ok {
			return rec
		}
		e.cond.Wait()
	}
}

func (e *Executor) run(ctx context.Context, script *domain.ScriptConfig, rec *record, parentLabel string) {
	label := script.Label(e.cfg.RootDir)

	if e.isAborted() {
		rec.resolve(ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: errAborted})
		return
	}
	if script.Kind != domain.Service && e.noNew.Load() {
		rec.resolve(ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: errSkippedAfterFailure})
		return
	}

	spanCtx, span := e.cfg.Tracer.Start(ctx, label)
	defer span.End()

	if e.cfg.Renderer != nil {
		e.cfg.Renderer.OnScriptStart(label, parentLabel, label, time.Now())
	}

	var result ports.ExecutionResult
	switch script.Kind {
	case domain.NoCommand:
		result = e.runNoCommand(spanCtx, script, label)
	case domain.OneShot:
		result = e.runOneShot(spanCtx, script, label)
	case domain.Service:
		result = rec.service.fingerprintAndRegister(spanCtx, label)
	}

	if result.Outcome == ports.OutcomeFailed {
		span.RecordError(result.Err)
		e.NotifyFailure()
	}
	if e.cfg.Renderer != nil {
		e.cfg.Renderer.OnScriptComplete(label, time.Now(), result.Outcome, result.Err)
	}
	rec.resolve(result)
}

// NotifyFailure applies the configured failure-mode policy. Continue leaves
// independent subtrees running; NoNew stops new executions from starting
// while in-flight ones finish; Kill additionally aborts immediately.
func (e *Executor) NotifyFailure() {
	switch e.cfg.FailureMode {
	case ports.FailureModeContinue:
		return
	case ports.FailureModeNoNew:
		e.noNew.Store(true)
	case ports.FailureModeKill:
		e.noNew.Store(true)
		e.Abort()
	}
}

// Abort stops new executions, terminates in-flight children, and releases
// every entrypoint consumer handle held on top-level services.
func (e *Executor) Abort() {
	e.abortOnce.Do(func() {
		e.noNew.Store(true)
		close(e.abortCh)

		e.entrypointMu.Lock()
		handles := e.entrypoints
		e.entrypoints = nil
		e.entrypointMu.Unlock()
		for _, h := range handles {
			h.Release()
		}

		e.mu.Lock()
		services := make([]*serviceExecution, 0, len(e.records))
		for _, rec := range e.records {
			if rec.service != nil {
				services = append(services, rec.service)
			}
		}
		e.mu.Unlock()
		for _, svc := range services {
			svc.terminate()
		}
	})
}

func (e *Executor) isAborted() bool {
	select {
	case <-e.abortCh:
		return true
	default:
		return false
	}
}
