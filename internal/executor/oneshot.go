package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"go.trai.ch/zerr"
)

// runOneShot implements the one-shot execution variant: dependency
// resolution and upstream-service wait, freshness and cache short-circuits,
// output cleaning, and the actual spawn.
func (e *Executor) runOneShot(ctx context.Context, script *domain.ScriptConfig, label string) ports.ExecutionResult {
	results, err := e.dependencyResults(ctx, script, label, true)
	if err != nil {
		return fail(script, err)
	}

	if err := e.awaitUpstreamServices(ctx, script); err != nil {
		return fail(script, err)
	}

	fp, err := e.cfg.Fingerprints.Compute(ctx, script, depFingerprints(script, results))
	if err != nil {
		return fail(script, err)
	}

	packageDir := script.Reference.PackageDir.String()
	name := script.Reference.Name.String()

	fresh, err := fingerprint.IsFresh(e.cfg.Store, script, fp)
	if err != nil {
		return fail(script, err)
	}
	if fresh {
		return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeSuccessFresh, Fingerprint: fp}
	}

	if fp.Cacheable() && e.cfg.Cache != nil {
		hit, err := e.cfg.Cache.Has(ctx, fp.String())
		if err != nil {
			return fail(script, err)
		}
		if hit {
			if err := e.cfg.Cache.Restore(ctx, fp.String(), packageDir, script.Output); err != nil {
				return fail(script, err)
			}
			if err := e.cfg.Store.Put(packageDir, name, fp.String()); err != nil {
				return fail(script, zerr.Wrap(err, domain.ErrFingerprintPersist.Error()))
			}
			return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeSuccessCached, Fingerprint: fp}
		}
	}

	if e.shouldClean(script, fp) {
		if err := e.cleanOutputs(script); err != nil {
			return fail(script, err)
		}
	}

	if err := e.cfg.Pool.Acquire(ctx); err != nil {
		return fail(script, err)
	}
	defer e.cfg.Pool.Release()

	sup := e.cfg.Supervisors.New()
	if err := sup.Start(ctx, script.Command, packageDir, nil); err != nil {
		return fail(script, zerr.Wrap(err, domain.ErrSpawnFailed.Error()))
	}

	e.forwardOutput(sup, label)
	exit := <-sup.Done()

	switch exit.Kind {
	case ports.ExitOK:
		if fp.Cacheable() && e.cfg.Cache != nil {
			if err := e.cfg.Cache.Put(ctx, fp.String(), packageDir, script.Output); err != nil {
				return fail(script, zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()))
			}
		}
		if err := e.cfg.Store.Put(packageDir, name, fp.String()); err != nil {
			return fail(script, zerr.Wrap(err, domain.ErrFingerprintPersist.Error()))
		}
		return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeSuccessRan, Fingerprint: fp}
	case ports.ExitSignal:
		return fail(script, zerr.With(domain.ErrKilledBySignal, "signal", exit.SignalName))
	case ports.ExitTerminated:
		return fail(script, domain.ErrTerminated)
	default:
		return fail(script, zerr.With(domain.ErrNonZeroExit, "exit_code", exit.ExitCode))
	}
}

func fail(script *domain.ScriptConfig, err error) ports.ExecutionResult {
	return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: err}
}

// forwardOutput drains a supervisor's output channel to the configured
// renderer, if any, until the channel closes at process exit.
func (e *Executor) forwardOutput(sup ports.Supervisor, label string) {
	if e.cfg.Renderer == nil {
		for range sup.Output() { //nolint:revive // draining is the point
		}
		return
	}
	for chunk := range sup.Output() {
		e.cfg.Renderer.OnScriptLog(label, chunk.Data, chunk.Stderr)
	}
}

// shouldClean implements the output-cleaning decision: always for
// CleanAlways, never for CleanNever, and for CleanIfFileDeleted only when
// the input file set has shrunk relative to the previously persisted
// fingerprint.
func (e *Executor) shouldClean(script *domain.ScriptConfig, current domain.Fingerprint) bool {
	switch script.Clean {
	case domain.CleanAlways:
		return true
	case domain.CleanIfFileDeleted:
		return fileSetShrank(e.cfg.Store, script, current)
	default:
		return false
	}
}

// fileSetShrank reports whether any input file present in the previously
// persisted fingerprint is absent from current's file set.
func fileSetShrank(store ports.StateStore, script *domain.ScriptConfig, current domain.Fingerprint) bool {
	packageDir := script.Reference.PackageDir.String()
	name := script.Reference.Name.String()

	persisted, err := store.Get(packageDir, name)
	if err != nil || persisted == "" {
		return false
	}

	var prev struct {
		Files map[string]string `json:"files"`
	}
	if err := json.Unmarshal([]byte(persisted), &prev); err != nil {
		return false
	}
	for path := range prev.Files {
		if _, ok := current.Files[path]; !ok {
			return true
		}
	}
	return false
}

// cleanOutputs removes every path matched by script's declared output
// globs.
func (e *Executor) cleanOutputs(script *domain.ScriptConfig) error {
	packageDir := script.Reference.PackageDir.String()
	matches, err := e.cfg.Glob.Expand(packageDir, script.Output)
	if err != nil {
		return zerr.Wrap(err, domain.ErrGlobExpandFailed.Error())
	}
	for _, rel := range matches {
		if err := os.RemoveAll(filepath.Join(packageDir, rel)); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrOutputCleanFailed.Error()), "path", rel)
		}
	}
	return nil
}
