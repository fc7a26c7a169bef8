package ports

import (
	"context"

	"github.com/wireit-go/wireit/internal/core/domain"
)

// ExecutionOutcome is the terminal result of one script's execution record.
type ExecutionOutcome uint8

const (
	OutcomeSuccessFresh ExecutionOutcome = iota
	OutcomeSuccessCached
	OutcomeSuccessRan
	OutcomeSuccessNoCommand
	OutcomeFailed
)

// ExecutionResult is what Executor.Execute returns for one script: its
// computed fingerprint, the outcome, and the consumer handles on upstream
// services that downstream consumers must hold for as long as they depend
// on this execution's result.
type ExecutionResult struct {
	Reference   domain.ScriptReference
	Outcome     ExecutionOutcome
	Fingerprint domain.Fingerprint
	Services    []ServiceHandle
	Err         error
}

// ServiceHandle is a held consumer slot on a running service; Release must
// be called exactly once, when the holder no longer needs the service.
type ServiceHandle interface {
	Release()
}

// Executor is the single per-invocation coordinator: it owns the worker
// pool, cache handle, failure-mode policy, and per-reference execution
// memoization, and dispatches each script to its no-command, one-shot, or
// service execution variant.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// ExecuteTopLevel executes root and keeps any discovered top-level
	// services alive until the abort signal fires.
	ExecuteTopLevel(ctx context.Context, root *domain.ScriptConfig) error

	// Execute runs or returns the memoized result for a single script.
	Execute(ctx context.Context, script *domain.ScriptConfig) ExecutionResult

	// NotifyFailure records a failure and applies the failure-mode policy.
	// Idempotent beyond the first call's policy effect.
	NotifyFailure()

	// Abort triggers the abort signal: stop new executions, terminate
	// in-flight children, release entrypoint consumer handles.
	Abort()
}

// FailureMode controls what happens to independent subtrees after a
// script's execution fails.
type FailureMode uint8

const (
	FailureModeContinue FailureMode = iota
	FailureModeNoNew
	FailureModeKill
)
