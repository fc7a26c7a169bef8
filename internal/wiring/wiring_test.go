package wiring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/cache/local"
)

func TestBuildCache_LocalIsDefault(t *testing.T) {
	root := t.TempDir()

	c, err := buildCache(Options{RootDir: root})
	require.NoError(t, err)
	require.IsType(t, &local.Cache{}, c)
}

func TestBuildCache_LocalExplicit(t *testing.T) {
	root := t.TempDir()

	c, err := buildCache(Options{RootDir: root, Cache: CacheLocal})
	require.NoError(t, err)
	require.IsType(t, &local.Cache{}, c)
}

func TestBuildCache_NoneReturnsNilCacheWithNoError(t *testing.T) {
	c, err := buildCache(Options{Cache: CacheNone})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestBuildCache_S3WithoutBucketErrors(t *testing.T) {
	_, err := buildCache(Options{Cache: CacheS3})
	assert.Error(t, err)
}

func TestBuildCache_S3WithBucketConstructsBackend(t *testing.T) {
	c, err := buildCache(Options{Cache: CacheS3, S3Bucket: "my-bucket", S3Prefix: "prefix/"})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestBuildCache_UnknownKindErrors(t *testing.T) {
	_, err := buildCache(Options{Cache: "bogus"})
	assert.Error(t, err)
}

func TestBuild_ConstructsEngineWithLocalCacheUnderRootDir(t *testing.T) {
	root := t.TempDir()

	e, err := Build(Options{RootDir: root})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.NotNil(t, e.Loader)
	assert.NotNil(t, e.Cache)
	assert.NotNil(t, e.Pool)
	assert.NotNil(t, e.Tracer)
	assert.NotNil(t, e.Renderer)
	assert.NotNil(t, e.Watcher)
	assert.Equal(t, root, e.rootDir)

	exec := e.NewExecutor()
	require.NotNil(t, exec)

	assert.Equal(t, local.New(filepath.Join(root, localCacheDirName)), e.Cache)
}
