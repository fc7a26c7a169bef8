package executor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

// dependencyResults resolves every dependency edge of script concurrently
// and returns each child's terminal result keyed by its dependency edge
// index, alongside the first failure encountered (if any). randomize
// shuffles the order dependencies are kicked off in, to surface undeclared
// ordering assumptions in one-shot command graphs.
func (e *Executor) dependencyResults(ctx context.Context, script *domain.ScriptConfig, label string, randomize bool) ([]ports.ExecutionResult, error) {
	order := make([]int, len(script.Dependencies))
	for i := range order {
		order[i] = i
	}
	if randomize {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	results := make([]ports.ExecutionResult, len(script.Dependencies))
	var wg sync.WaitGroup
	for _, idx := range order {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			edge := script.Dependencies[idx]
			results[idx] = e.executeWithParent(ctx, edge.Child, label)
		}(idx)
	}
	wg.Wait()

	for i, res := range results {
		if res.Outcome == ports.OutcomeFailed {
			return results, zerr.With(zerr.Wrap(res.Err, domain.ErrDependencyFailed.Error()), "dependency", script.Dependencies[i].Child.Reference.String())
		}
	}
	return results, nil
}

// depFingerprints assembles the dependency-reference-string -> fingerprint
// map the fingerprint computer needs, from a set of already-resolved
// dependency results.
func depFingerprints(script *domain.ScriptConfig, results []ports.ExecutionResult) map[string]domain.Fingerprint {
	out := make(map[string]domain.Fingerprint, len(results))
	for i, res := range results {
		out[script.Dependencies[i].Child.Reference.String()] = res.Fingerprint
	}
	return out
}

// forwardedServices computes the Services a no-command script reports: for
// each direct Service dependency, a fresh entrypoint handle acquired on it
// right here; for each direct NoCommand dependency, that dependency's own
// already-forwarded set. Deduplicated by reference, since more than one path
// through the dependency graph can reach the same service.
//
// The handle is minted at this call, not by the service itself: a service
// only ever has an entrypoint handle outstanding when some no-command
// forwarder (or ExecuteTopLevel, for a service that is the root) actually
// asked for one. A service reached only through real command-bearing
// consumers, discovered separately by reverseConsumers, never has one.
func (e *Executor) forwardedServices(script *domain.ScriptConfig, results []ports.ExecutionResult) []ports.ServiceHandle {
	seen := map[string]bool{}
	var out []ports.ServiceHandle
	for i, edge := range script.Dependencies {
		switch edge.Child.Kind {
		case domain.Service:
			key := edge.Child.Reference.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			rec := e.waitForRecord(key)
			out = append(out, rec.service.acquireEntrypoint())
		case domain.NoCommand:
			for _, h := range results[i].Services {
				out = append(out, h)
			}
		}
	}
	return out
}

// awaitUpstreamServices blocks until every Service script reachable from
// script's dependencies (directly, or transitively through NoCommand
// scripts) has reached the started state, or returns the first failure.
func (e *Executor) awaitUpstreamServices(ctx context.Context, script *domain.ScriptConfig) error {
	visited := map[string]bool{}
	var walk func(s *domain.ScriptConfig) error
	walk = func(s *domain.ScriptConfig) error {
		for _, edge := range s.Dependencies {
			child := edge.Child
			key := child.Reference.Key()
			if visited[key] {
				continue
			}
			visited[key] = true
			switch child.Kind {
			case domain.Service:
				rec := e.waitForRecord(key)
				if err := rec.service.awaitStarted(ctx); err != nil {
					return zerr.With(err, "service", child.Reference.String())
				}
			case domain.NoCommand:
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(script)
}
