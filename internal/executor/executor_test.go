package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/cache/local"
	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/executor"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"github.com/wireit-go/wireit/internal/globutil"
	"github.com/wireit-go/wireit/internal/supervisor"
	"github.com/wireit-go/wireit/internal/workerpool"
)

// noopSpan and noopTracer stand in for the telemetry tracer, which these
// tests have no need to exercise.
type noopSpan struct{}

func (noopSpan) End()                     {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) SetAttribute(string, any) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	return ctx, noopSpan{}
}

func newScript(packageDir, name string, kind domain.ScriptKind, command string) *domain.ScriptConfig {
	return &domain.ScriptConfig{
		Reference: domain.NewScriptReference(packageDir, name),
		Kind:      kind,
		Command:   command,
	}
}

func link(parent, child *domain.ScriptConfig) {
	parent.Dependencies = append(parent.Dependencies, domain.DependencyEdge{
		Child:    child,
		RawValue: child.Reference.Name.String(),
	})
	child.ReverseDependencies = append(child.ReverseDependencies, parent)
}

func newTestExecutor(t *testing.T, packageDir string) *executor.Executor {
	t.Helper()
	glob := globutil.New()
	return executor.New(executor.Config{
		RootDir:      packageDir,
		Tracer:       noopTracer{},
		Cache:        local.New(filepath.Join(packageDir, ".wireit-cache")),
		Store:        executor.NewFileStateStore(),
		Pool:         workerpool.New(4),
		Glob:         glob,
		Fingerprints: fingerprint.NewComputer(glob, "go1.test"),
		Supervisors:  supervisor.NewFactory(),
		FailureMode:  ports.FailureModeContinue,
	})
}

func TestExecutor_OneShot_RunsThenFresh(t *testing.T) {
	dir := t.TempDir()
	build := newScript(dir, "build", domain.OneShot, "printf hi > out.txt")
	build.Output = []string{"out.txt"}

	exec := newTestExecutor(t, dir)
	result := exec.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessRan, result.Outcome)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))

	// A fresh Executor shares nothing but the on-disk state; the persisted
	// fingerprint and the still-present output make this run a no-op.
	exec2 := newTestExecutor(t, dir)
	result2 := exec2.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessFresh, result2.Outcome)
	require.True(t, result.Fingerprint.Equal(result2.Fingerprint))
}

func TestExecutor_OneShot_CacheRestoresMissingOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("v1"), 0o644))

	build := newScript(dir, "build", domain.OneShot, "cp in.txt out.txt")
	build.Files = []string{"in.txt"}
	build.Output = []string{"out.txt"}

	exec := newTestExecutor(t, dir)
	result := exec.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessRan, result.Outcome)
	require.True(t, result.Fingerprint.Cacheable())

	require.NoError(t, os.Remove(filepath.Join(dir, "out.txt")))

	exec2 := newTestExecutor(t, dir)
	result2 := exec2.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessCached, result2.Outcome)
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(data))
}

func TestExecutor_OneShot_Failure(t *testing.T) {
	dir := t.TempDir()
	fail := newScript(dir, "fail", domain.OneShot, "exit 7")

	exec := newTestExecutor(t, dir)
	result := exec.Execute(context.Background(), fail)
	require.Equal(t, ports.OutcomeFailed, result.Outcome)
	require.Error(t, result.Err)
}

func TestExecutor_OneShot_CleanIfFileDeleted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	build := newScript(dir, "build", domain.OneShot, "for f in *.txt; do cat \"$f\" >> out.dat; done")
	build.Files = []string{"*.txt"}
	build.Output = []string{"out.dat"}
	build.Clean = domain.CleanIfFileDeleted

	exec := newTestExecutor(t, dir)
	result := exec.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessRan, result.Outcome)

	require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))
	// Leave a stale out.dat with the deleted file's contribution in it, so a
	// skipped clean would be observable as leftover content.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.dat"), []byte("ab"), 0o644))

	exec2 := newTestExecutor(t, dir)
	result2 := exec2.Execute(context.Background(), build)
	require.Equal(t, ports.OutcomeSuccessRan, result2.Outcome)

	data, err := os.ReadFile(filepath.Join(dir, "out.dat"))
	require.NoError(t, err)
	require.Equal(t, "a", string(data))
}

func TestExecutor_NoCommand_ForwardsDependencyFailure(t *testing.T) {
	dir := t.TempDir()
	leaf := newScript(dir, "leaf", domain.OneShot, "exit 1")
	root := newScript(dir, "root", domain.NoCommand, "")
	link(root, leaf)

	exec := newTestExecutor(t, dir)
	result := exec.Execute(context.Background(), root)
	require.Equal(t, ports.OutcomeFailed, result.Outcome)
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), domain.ErrDependencyFailed.Error())
}

func TestExecutor_FailureMode_NoNew_SkipsSubsequentExecutions(t *testing.T) {
	dir := t.TempDir()
	fail := newScript(dir, "fail", domain.OneShot, "exit 1")
	other := newScript(dir, "other", domain.OneShot, "printf ok > other.out")

	glob := globutil.New()
	exec := executor.New(executor.Config{
		RootDir:      dir,
		Tracer:       noopTracer{},
		Cache:        local.New(filepath.Join(dir, ".wireit-cache")),
		Store:        executor.NewFileStateStore(),
		Pool:         workerpool.New(4),
		Glob:         glob,
		Fingerprints: fingerprint.NewComputer(glob, "go1.test"),
		Supervisors:  supervisor.NewFactory(),
		FailureMode:  ports.FailureModeNoNew,
	})

	result := exec.Execute(context.Background(), fail)
	require.Equal(t, ports.OutcomeFailed, result.Outcome)

	// The failure's NotifyFailure call happens synchronously before fail's
	// record resolves, so by the time Execute returns, a brand new
	// execution started afterward is already subject to the no-new policy.
	result2 := exec.Execute(context.Background(), other)
	require.Equal(t, ports.OutcomeFailed, result2.Outcome)

	_, statErr := os.Stat(filepath.Join(dir, "other.out"))
	require.True(t, os.IsNotExist(statErr))
}

func TestExecutor_Service_StartsOnConsumerAndStopsAfter(t *testing.T) {
	dir := t.TempDir()
	started := filepath.Join(dir, "started.marker")
	stopped := filepath.Join(dir, "stopped.marker")

	svc := newScript(dir, "svc", domain.Service,
		"trap 'touch "+stopped+"; exit 0' TERM; touch "+started+"; sleep 30")
	consumer := newScript(dir, "consumer", domain.OneShot, "printf done > consumer.out")
	link(consumer, svc)

	exec := newTestExecutor(t, dir)

	require.NoError(t, exec.ExecuteTopLevel(context.Background(), consumer))

	require.Eventually(t, func() bool {
		_, err := os.Stat(started)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "service never started")

	// The consumer has already completed by the time ExecuteTopLevel
	// returns, so its release of the service's consumer slot has already
	// been requested; the service's own termination happens asynchronously
	// once its supervised process actually exits.
	require.Eventually(t, func() bool {
		_, err := os.Stat(stopped)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "service never stopped after its only consumer completed")
}

func TestExecutor_Service_TopLevelEntrypointStopsOnAbort(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "started.marker")
	stopped := filepath.Join(dir, "stopped.marker")

	svc := newScript(dir, "svc", domain.Service,
		"trap 'touch "+stopped+"; exit 0' TERM; touch "+marker+"; sleep 30")
	root := newScript(dir, "root", domain.NoCommand, "")
	link(root, svc)

	exec := newTestExecutor(t, dir)
	require.NoError(t, exec.ExecuteTopLevel(context.Background(), root))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "top-level service never started")

	exec.Abort()

	require.Eventually(t, func() bool {
		_, err := os.Stat(stopped)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "top-level service never stopped after Abort")
}
