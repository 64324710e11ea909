package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyatz/ensembl-registry/adaptor"
)

func TestDiscoverConfigPathPrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.ini")
	require.NoError(t, os.WriteFile(explicit, []byte("[default]\n"), 0o644))

	t.Setenv("ENSEMBL_REGISTRY", filepath.Join(dir, "does_not_exist.ini"))

	path, ok := DiscoverConfigPath(explicit)
	require.True(t, ok)
	assert.Equal(t, explicit, path)
}

func TestDiscoverConfigPathFallsBackToEnvVar(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "from_env.ini")
	require.NoError(t, os.WriteFile(envPath, []byte("[default]\n"), 0o644))
	t.Setenv("ENSEMBL_REGISTRY", envPath)

	path, ok := DiscoverConfigPath("")
	require.True(t, ok)
	assert.Equal(t, envPath, path)
}

func TestDiscoverConfigPathReturnsFalseWhenNothingExists(t *testing.T) {
	t.Setenv("ENSEMBL_REGISTRY", "/nonexistent/path/registry.ini")
	_, ok := DiscoverConfigPath("/also/nonexistent.ini")
	assert.False(t, ok)
}

func TestLoadDiscoveredConfigRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.conf")
	require.NoError(t, os.WriteFile(path, []byte("whatever"), 0o644))

	err := LoadDiscoveredConfig(path, newTestStore(), adaptor.NewFactoryRegistry())
	require.Error(t, err)
	assert.True(t, adaptor.IsCode(err, adaptor.ErrorBadInput))
}

func TestLoadDiscoveredConfigLoadsINI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.ini")
	text := "[homo_sapiens_core]\nspecies = homo_sapiens\ngroup = core\nhost = h\ndbname = d\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	factories := adaptor.NewFactoryRegistry()
	registerPassthroughFactory(t, factories, adaptor.GroupCore)

	store := newTestStore()
	require.NoError(t, LoadDiscoveredConfig(path, store, factories))
	assert.NotNil(t, store.GetDBAdaptor("homo_sapiens", adaptor.GroupCore))
}
