package fingerprint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/fingerprint"
	"github.com/wireit-go/wireit/internal/globutil"
)

func newScript(dir, name, command string, files []string) *domain.ScriptConfig {
	return &domain.ScriptConfig{
		Reference: domain.NewScriptReference(dir, name),
		Kind:      domain.OneShot,
		Command:   command,
		Files:     files,
	}
}

func TestCompute_StableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("hello"), 0o644))

	c := fingerprint.NewComputer(globutil.New(), "go1.x")
	script := newScript(dir, "build", "tsc", []string{"in.txt"})

	fp1, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)
	fp2, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)
	assert.True(t, fp1.Equal(fp2))
}

func TestCompute_ChangesWithFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	c := fingerprint.NewComputer(globutil.New(), "go1.x")
	script := newScript(dir, "build", "tsc", []string{"in.txt"})

	fp1, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("goodbye"), 0o644))
	c2 := fingerprint.NewComputer(globutil.New(), "go1.x")
	fp2, err := c2.Compute(context.Background(), script, nil)
	require.NoError(t, err)

	assert.False(t, fp1.Equal(fp2))
}

func TestCompute_NoCommandIsAlwaysCacheable(t *testing.T) {
	dir := t.TempDir()
	c := fingerprint.NewComputer(globutil.New(), "go1.x")
	script := &domain.ScriptConfig{Reference: domain.NewScriptReference(dir, "meta"), Kind: domain.NoCommand}

	fp, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)
	assert.True(t, fp.Cacheable())
}

func TestCompute_CommandWithoutFilesIsNotCacheable(t *testing.T) {
	dir := t.TempDir()
	c := fingerprint.NewComputer(globutil.New(), "go1.x")
	script := newScript(dir, "build", "tsc", nil)

	fp, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)
	assert.False(t, fp.Cacheable())
}

func TestIsFresh_RequiresPersistedMatchAndOutputsPresent(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.js")
	require.NoError(t, os.WriteFile(outputPath, []byte("x"), 0o644))

	script := &domain.ScriptConfig{
		Reference: domain.NewScriptReference(dir, "build"),
		Kind:      domain.OneShot,
		Command:   "tsc",
		Output:    []string{"out.js"},
	}
	c := fingerprint.NewComputer(globutil.New(), "go1.x")
	current, err := c.Compute(context.Background(), script, nil)
	require.NoError(t, err)

	store := &memStore{}
	fresh, err := fingerprint.IsFresh(store, script, current)
	require.NoError(t, err)
	assert.False(t, fresh, "no fingerprint has been persisted yet")

	require.NoError(t, store.Put(dir, "build", current.String()))
	fresh, err = fingerprint.IsFresh(store, script, current)
	require.NoError(t, err)
	assert.True(t, fresh)

	require.NoError(t, os.Remove(outputPath))
	fresh, err = fingerprint.IsFresh(store, script, current)
	require.NoError(t, err)
	assert.False(t, fresh, "declared output no longer exists on disk")
}

type memStore struct {
	values map[string]string
}

func (m *memStore) Get(packageDir, name string) (string, error) {
	if m.values == nil {
		return "", nil
	}
	return m.values[packageDir+"|"+name], nil
}

func (m *memStore) Put(packageDir, name, fp string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[packageDir+"|"+name] = fp
	return nil
}
