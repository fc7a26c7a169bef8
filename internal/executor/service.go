package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

// svcState enumerates the service execution state machine's nine states.
type svcState uint32

const (
	svcInitial svcState = iota
	svcFingerprinting
	svcAwaitingFirstConsumer
	svcStarting
	svcStarted
	svcStopping
	svcStopped
	svcFailing
	svcFailed
)

// serviceExecution drives one service script through its lifecycle,
// independent of the executor's own memoized record for it: the record
// resolves as soon as the service is fingerprinted and registered, while
// the service keeps running in the background, gated on consumer count.
//
// A consumer is either a statically-discovered command-bearing
// reverse-dependent (found by walking through no-command reverse-edges) or
// an entrypoint handle acquired directly by ExecuteTopLevel (when the
// service is itself the root) or by a no-command forwarder standing between
// the service and the root. The service starts the moment either kind of
// demand exists, and stops once none remain.
type serviceExecution struct {
	exec   *Executor
	script *domain.ScriptConfig

	state atomic.Uint32

	fingerprint domain.Fingerprint

	startedOnce sync.Once
	startedCh   chan struct{}
	startErr    error

	doneOnce   sync.Once
	done       chan struct{}
	doneResult ports.ExecutionResult

	countMu sync.Mutex
	held    int

	mu  sync.Mutex
	sup ports.Supervisor
}

func newServiceExecution(exec *Executor, script *domain.ScriptConfig) *serviceExecution {
	return &serviceExecution{
		exec:      exec,
		script:    script,
		startedCh: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// fingerprintAndRegister resolves the service's dependencies, computes its
// fingerprint, discovers its statically-known consumers, and returns the
// result the executor's memoized record resolves with. It does not wait
// for the service to actually start: a service is never fingerprint-skipped
// or cache-restored, but its Execute() result is available as soon as its
// identity is known, since downstream fingerprints only need that identity.
func (svc *serviceExecution) fingerprintAndRegister(ctx context.Context, label string) ports.ExecutionResult {
	svc.state.Store(uint32(svcFingerprinting))

	results, err := svc.exec.dependencyResults(ctx, svc.script, label, false)
	if err != nil {
		svc.fail(err)
		return fail(svc.script, err)
	}

	fp, err := svc.exec.cfg.Fingerprints.Compute(ctx, svc.script, depFingerprints(svc.script, results))
	if err != nil {
		svc.fail(err)
		return fail(svc.script, err)
	}
	svc.fingerprint = fp

	svc.state.Store(uint32(svcAwaitingFirstConsumer))

	consumers := reverseConsumers(svc.script)
	go svc.trackConsumers(consumers)

	return ports.ExecutionResult{
		Reference:   svc.script.Reference,
		Outcome:     ports.OutcomeSuccessRan,
		Fingerprint: fp,
	}
}

// trackConsumers registers the statically-discovered consumer set and waits
// on each one's terminal signal to release its slot.
func (svc *serviceExecution) trackConsumers(consumers []*domain.ScriptConfig) {
	if len(consumers) == 0 {
		return
	}
	svc.countMu.Lock()
	svc.held += len(consumers)
	svc.countMu.Unlock()
	svc.maybeStart()

	var wg sync.WaitGroup
	for _, c := range consumers {
		wg.Add(1)
		go func(c *domain.ScriptConfig) {
			defer wg.Done()
			<-svc.exec.terminalSignal(c)
			svc.release()
		}(c)
	}
	wg.Wait()
}

// acquireEntrypoint mints an additional consumer handle for a top-level
// service. It is called exactly where that demand originates: by
// ExecuteTopLevel directly on a service that is itself the root, or by a
// no-command forwarder (forwardedServices) on a service that is its direct
// dependency. A service with no such caller above it never has a handle
// minted on its behalf, so it holds no phantom consumer once its real
// consumers (found by reverseConsumers) have all released. Release is
// idempotent, since a no-command chain can forward the same handle along
// more than one path to the same service.
func (svc *serviceExecution) acquireEntrypoint() ports.ServiceHandle {
	svc.countMu.Lock()
	svc.held++
	svc.countMu.Unlock()
	svc.maybeStart()
	return &serviceHandle{release: svc.release}
}

func (svc *serviceExecution) release() {
	svc.countMu.Lock()
	svc.held--
	remaining := svc.held
	svc.countMu.Unlock()
	if remaining <= 0 {
		svc.maybeStop()
	}
}

func (svc *serviceExecution) maybeStart() {
	if svc.state.CompareAndSwap(uint32(svcAwaitingFirstConsumer), uint32(svcStarting)) {
		go svc.start()
	}
}

func (svc *serviceExecution) maybeStop() {
	if svc.state.CompareAndSwap(uint32(svcStarted), uint32(svcStopping)) {
		svc.mu.Lock()
		sup := svc.sup
		svc.mu.Unlock()
		if sup != nil {
			_ = sup.Terminate()
		}
	}
}

// start acquires the service's own upstream services and spawns its child.
// It runs detached from any single caller's context, since the service's
// lifetime spans many independent executions.
func (svc *serviceExecution) start() {
	ctx := context.Background()

	if err := svc.exec.awaitUpstreamServices(ctx, svc.script); err != nil {
		svc.fail(err)
		return
	}

	sup := svc.exec.cfg.Supervisors.New()
	svc.mu.Lock()
	svc.sup = sup
	svc.mu.Unlock()

	packageDir := svc.script.Reference.PackageDir.String()
	if err := sup.Start(ctx, svc.script.Command, packageDir, nil); err != nil {
		svc.fail(zerr.Wrap(err, domain.ErrSpawnFailed.Error()))
		return
	}

	svc.state.Store(uint32(svcStarted))
	svc.startedOnce.Do(func() { close(svc.startedCh) })

	svc.countMu.Lock()
	remaining := svc.held
	svc.countMu.Unlock()
	if remaining <= 0 {
		svc.maybeStop()
	}

	label := svc.script.Label(svc.exec.cfg.RootDir)
	go svc.exec.forwardOutput(sup, label)
	go svc.watch(sup)
	go svc.monitorUpstreamFailures()
}

// watch observes the supervised child's exit and classifies it as a clean
// stop (we asked for termination) or a spontaneous failure.
func (svc *serviceExecution) watch(sup ports.Supervisor) {
	exit := <-sup.Done()

	if svc.state.Load() == uint32(svcStopping) {
		svc.state.Store(uint32(svcStopped))
		svc.resolveDone(ports.ExecutionResult{
			Reference:   svc.script.Reference,
			Outcome:     ports.OutcomeSuccessRan,
			Fingerprint: svc.fingerprint,
		})
		return
	}

	svc.state.Store(uint32(svcFailing))
	err := domain.ErrServiceExitedUnexpectedly
	if exit.Kind == ports.ExitSignal {
		err = zerr.With(domain.ErrServiceExitedUnexpectedly, "signal", exit.SignalName)
	}
	svc.fail(err)
}

// monitorUpstreamFailures watches each direct service dependency for an
// unexpected stop while this service is started, and propagates the
// failure by terminating this service's own child.
func (svc *serviceExecution) monitorUpstreamFailures() {
	for _, edge := range svc.script.Dependencies {
		if edge.Child.Kind != domain.Service {
			continue
		}
		go func(child *domain.ScriptConfig) {
			rec := svc.exec.waitForRecord(child.Reference.Key())
			<-rec.service.done
			if rec.service.doneResult.Outcome != ports.OutcomeFailed {
				return
			}
			if !svc.state.CompareAndSwap(uint32(svcStarted), uint32(svcFailing)) {
				return
			}
			svc.mu.Lock()
			sup := svc.sup
			svc.mu.Unlock()
			if sup != nil {
				_ = sup.Terminate()
			}
			svc.fail(domain.ErrServiceTerminatedUnexpectedly)
		}(edge.Child)
	}
}

func (svc *serviceExecution) fail(err error) {
	svc.state.Store(uint32(svcFailed))
	svc.startedOnce.Do(func() {
		svc.startErr = err
		close(svc.startedCh)
	})
	svc.exec.NotifyFailure()
	svc.resolveDone(ports.ExecutionResult{Reference: svc.script.Reference, Outcome: ports.OutcomeFailed, Err: err})
}

func (svc *serviceExecution) resolveDone(result ports.ExecutionResult) {
	svc.doneOnce.Do(func() {
		svc.doneResult = result
		close(svc.done)
	})
}

// awaitStarted blocks until the service has started or failed trying to.
func (svc *serviceExecution) awaitStarted(ctx context.Context) error {
	select {
	case <-svc.startedCh:
		return svc.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// terminate stops the service if it is currently started, used by Abort to
// stop top-level services after releasing their entrypoint handles makes no
// difference (e.g. they still have other live consumers).
func (svc *serviceExecution) terminate() {
	svc.maybeStop()
}

// reverseConsumers statically enumerates script's command-bearing
// reverse-dependents, recursing through no-command reverse-dependents so
// that a chain of no-command scripts between a service and its real
// consumer is not itself counted as a consumer.
func reverseConsumers(script *domain.ScriptConfig) []*domain.ScriptConfig {
	seen := map[string]bool{}
	var out []*domain.ScriptConfig

	var walk func(s *domain.ScriptConfig)
	walk = func(s *domain.ScriptConfig) {
		for _, rd := range s.ReverseDependencies {
			key := rd.Reference.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			if rd.Kind == domain.NoCommand {
				walk(rd)
				continue
			}
			out = append(out, rd)
		}
	}
	walk(script)
	return out
}

// serviceHandle is a ports.ServiceHandle whose Release is idempotent, since
// the same handle can be forwarded to more than one caller along different
// no-command paths to the same service.
type serviceHandle struct {
	once    sync.Once
	release func()
}

func (h *serviceHandle) Release() {
	h.once.Do(h.release)
}

// terminalSignal returns the channel that fires when c's execution reaches
// a terminal state: for a service, that is its own stop or failure, not its
// early fingerprint-and-register result.
func (e *Executor) terminalSignal(c *domain.ScriptConfig) <-chan struct{} {
	rec := e.waitForRecord(c.Reference.Key())
	if c.Kind == domain.Service {
		return rec.service.done
	}
	return rec.done
}
