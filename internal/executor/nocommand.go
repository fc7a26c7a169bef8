package executor

import (
	"context"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
)

// runNoCommand resolves and awaits script's dependencies, forwards the
// union of their service handles, and computes a fingerprint purely to
// participate in its own dependents' fingerprints. A no-command script
// never spawns a process and is never skipped or cached.
func (e *Executor) runNoCommand(ctx context.Context, script *domain.ScriptConfig, label string) ports.ExecutionResult {
	results, err := e.dependencyResults(ctx, script, label, false)
	if err != nil {
		return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: err}
	}

	fp, err := e.cfg.Fingerprints.Compute(ctx, script, depFingerprints(script, results))
	if err != nil {
		return ports.ExecutionResult{Reference: script.Reference, Outcome: ports.OutcomeFailed, Err: err}
	}

	return ports.ExecutionResult{
		Reference:   script.Reference,
		Outcome:     ports.OutcomeSuccessNoCommand,
		Fingerprint: fp,
		Services:    e.forwardedServices(script, results),
	}
}
