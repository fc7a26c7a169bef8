package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/app"
	"github.com/wireit-go/wireit/internal/core/domain"
)

func TestRun_AnalysisFailurePrintsDiagnosticsAndReturnsSentinel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{
		"scripts": {"build": "wireit"},
		"wireit": {"build": {}}
	}`), 0o644))

	var stdout, stderr bytes.Buffer
	a := app.New()
	err := a.Run(context.Background(), dir, "build", app.RunOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})

	assert.ErrorIs(t, err, app.ErrAnalysisFailed)
	assert.NotEmpty(t, stderr.String())
}

func TestRun_UnknownCacheBackendFailsBeforeAnalysis(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	a := app.New()

	err := a.Run(context.Background(), dir, "build", app.RunOptions{
		Cache:  "bogus",
		Stdout: &stdout,
		Stderr: &stderr,
	})
	assert.Error(t, err)
}

func TestClean_RemovesWireitStateDirsButSkipsNodeModulesAndGit(t *testing.T) {
	root := t.TempDir()

	stateDir := filepath.Join(root, domain.StateDirName)
	require.NoError(t, os.MkdirAll(stateDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, "state"), []byte("x"), 0o644))

	nested := filepath.Join(root, "packages", "a")
	nestedState := filepath.Join(nested, domain.StateDirName)
	require.NoError(t, os.MkdirAll(nestedState, 0o750))

	skippedState := filepath.Join(root, "node_modules", "dep", domain.StateDirName)
	require.NoError(t, os.MkdirAll(skippedState, 0o750))

	a := app.New()
	require.NoError(t, a.Clean(context.Background(), root))

	_, err := os.Stat(stateDir)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(nestedState)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(skippedState)
	assert.NoError(t, err, "state directories under node_modules must be left alone")
}

func TestClean_EmptyTreeIsNotAnError(t *testing.T) {
	a := app.New()
	require.NoError(t, a.Clean(context.Background(), t.TempDir()))
}
