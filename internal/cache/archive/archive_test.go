package archive_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wireit-go/wireit/internal/cache/archive"
)

func TestWriteExtract_RoundTripsNestedDirectories(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "dist", "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "dist", "a.js"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "dist", "nested", "b.js"), []byte("b"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, archive.Write(&buf, src, []string{"dist/**"}))

	dest := t.TempDir()
	require.NoError(t, archive.Extract(bytes.NewReader(buf.Bytes()), dest))

	a, err := os.ReadFile(filepath.Join(dest, "dist", "a.js"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(a))

	b, err := os.ReadFile(filepath.Join(dest, "dist", "nested", "b.js"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
}
