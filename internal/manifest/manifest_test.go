package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wireit-go/wireit/internal/manifest"
)

func writeManifest(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(contents), 0o644))
}

func TestLoad_ParsesWireitStanza(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"scripts": {"build": "wireit"},
		"wireit": {
			"build": {
				"command": "tsc",
				"files": ["src/**/*.ts"],
				"output": ["lib/**"],
				"dependencies": ["./other:build"]
			}
		}
	}`)

	loader := manifest.NewLoader()
	doc, diags := loader.Load(dir)
	require.Empty(t, diags)
	require.NotNil(t, doc)

	raw, ok := doc.Scripts["build"]
	require.True(t, ok)
	assert.Equal(t, "tsc", raw.Command.Value)
	require.NotNil(t, raw.Files)
	require.Len(t, raw.Files.Elements, 1)
	assert.Equal(t, "src/**/*.ts", raw.Files.Elements[0].Value)
	assert.Equal(t, "wireit", doc.ScriptsField["build"])
}

func TestLoad_MissingManifest(t *testing.T) {
	loader := manifest.NewLoader()
	doc, diags := loader.Load(t.TempDir())
	assert.Nil(t, doc)
	require.NotEmpty(t, diags)
	assert.True(t, diags.HasErrors())
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{not json`)

	loader := manifest.NewLoader()
	doc, diags := loader.Load(dir)
	assert.Nil(t, doc)
	require.NotEmpty(t, diags)
}

func TestLoad_WireitNotAMapping(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"wireit": "nope"}`)

	loader := manifest.NewLoader()
	doc, diags := loader.Load(dir)
	assert.Nil(t, doc)
	require.NotEmpty(t, diags)
}

func TestLoad_NoWireitStanzaIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"scripts": {"build": "tsc"}}`)

	loader := manifest.NewLoader()
	doc, diags := loader.Load(dir)
	require.Empty(t, diags)
	require.NotNil(t, doc)
	assert.Empty(t, doc.Scripts)
}

func TestLoad_ServiceFieldMustBeBool(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"scripts": {"dev": "wireit"},
		"wireit": {"dev": {"command": "vite", "service": "yes"}}
	}`)

	loader := manifest.NewLoader()
	_, diags := loader.Load(dir)
	require.NotEmpty(t, diags)
	assert.True(t, diags.HasErrors())
}

func TestLoad_PreservesOffsetsForDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
		"scripts": {"build": "wireit"},
		"wireit": {"build": {"command": 5}}
	}`)

	loader := manifest.NewLoader()
	_, diags := loader.Load(dir)
	require.NotEmpty(t, diags)
	assert.Greater(t, diags[0].Primary.Offset, 0)
}
