package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	base := t.TempDir()
	paths, err := GetPaths(PathsConfig{
		DataDir: filepath.Join(base, "data"),
		LogsDir: filepath.Join(base, "logs"),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "data", "cache"), paths.CacheDir)
	assert.Equal(t, filepath.Join(base, "data", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(base, "data", "cache", "prices.csv"), paths.PriceCacheCSV)
	assert.Equal(t, filepath.Join(base, "data", "reports", "cross_sections.csv"), paths.CrossSectionCSV)
	assert.Equal(t, filepath.Join(base, "logs", "run.log"), paths.GetLogPath("run.log"))
	assert.Equal(t, filepath.Join(base, "data", "reports", "a.csv"), paths.GetReportPath("a.csv"))
	assert.Equal(t, filepath.Join(base, "data", "cache", "b.csv"), paths.GetCachePath("b.csv"))
}

func TestGetPathsRelative(t *testing.T) {
	paths, err := GetPaths(PathsConfig{DataDir: "data", LogsDir: "logs"})
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data"), paths.DataDir)
	assert.True(t, filepath.IsAbs(paths.LogsDir))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths, err := GetPaths(PathsConfig{
		DataDir: filepath.Join(base, "data"),
		LogsDir: filepath.Join(base, "logs"),
	})
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.CacheDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent
	assert.NoError(t, paths.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.True(t, FileExists(path))
}
