package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackdownhq/trackdown/internal/config"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := config.Load(workspace)
	require.NoError(t, err)

	assert.Equal(t, workspace, cfg.Root, "relative root resolves against the workspace")
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.DefaultActor)
	assert.Equal(t, "auto", cfg.Color)
}

func TestLoadFromFile(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, config.ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
root: work
cache_ttl: 30s
default_actor: alice
color: never
`), 0o644))

	cfg, err := config.Load(workspace)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workspace, "work"), cfg.Root)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "alice", cfg.DefaultActor)
	assert.Equal(t, "never", cfg.Color)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, config.ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("default_actor: bob\n"), 0o644))

	cfg, err := config.Load(workspace)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.DefaultActor)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "auto", cfg.Color)
}

func TestLoadMalformedFile(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, config.ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("root: [unclosed\n"), 0o644))

	_, err := config.Load(workspace)
	require.Error(t, err)
}

func TestLoadAbsoluteRootUntouched(t *testing.T) {
	workspace := t.TempDir()
	other := t.TempDir()
	dir := filepath.Join(workspace, config.ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("root: "+other+"\n"), 0o644))

	cfg, err := config.Load(workspace)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.Root)
}
