package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte(
		"extension = \".salto\"\nparse_concurrency = 4\n"), 0o644))

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, ".salto", s.Extension)
	assert.Equal(t, 4, s.ParseConcurrency)
	assert.Equal(t, Default().StaticDir, s.StaticDir)
	assert.Equal(t, Default().CachePath, s.CachePath)
}

func TestLoad_FullFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte(`
extension = ".nacl"
source_dir = "envs/prod"
static_dir = "blobs"
cache_path = "cache/parse.db"
includes = ["envs/**"]
parse_concurrency = 8
watch_debounce_ms = 100
`), 0o644))

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "envs/prod", s.SourceDir)
	assert.Equal(t, "blobs", s.StaticDir)
	assert.Equal(t, "cache/parse.db", s.CachePath)
	assert.Equal(t, []string{"envs/**"}, s.Includes)
	assert.Equal(t, 8, s.ParseConcurrency)
	assert.Equal(t, 100, s.WatchDebounceMs)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte("extension = [unclosed"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}
