package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the config directory at an empty temp dir so tests never
// read the developer's ~/.batchrun.
func isolateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvConfig, "")
	return dir
}

func TestGlobalConfig(t *testing.T) {
	isolateHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, OutputFormatTable, cfg.Output.DefaultFormat)

	cfg2 := GetGlobalConfig()
	assert.Same(t, cfg, cfg2)

	ResetGlobalConfigForTest()
	cfg3 := GetGlobalConfig()
	assert.NotSame(t, cfg, cfg3)
}

func TestSetGlobalConfig(t *testing.T) {
	isolateHome(t)
	t.Cleanup(ResetGlobalConfigForTest)

	custom := Default()
	custom.Output.DefaultFormat = OutputFormatNDJSON
	SetGlobalConfig(custom)

	assert.Same(t, custom, GetGlobalConfig())
	assert.Equal(t, OutputFormatNDJSON, GetDefaultOutputFormat())
}

func TestConfigGetters(t *testing.T) {
	isolateHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Output.DefaultFormat = OutputFormatJSON
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/test.log"

	assert.Equal(t, OutputFormatJSON, GetDefaultOutputFormat())
	assert.Equal(t, "debug", GetLogLevel())
	assert.Equal(t, "/tmp/test.log", GetLogFile())
}

func TestNew_ReadsConfigFileFromHome(t *testing.T) {
	home := isolateHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, configFileName), []byte(`
batch:
  chunk_size: 25
  delay_between_chunks: 0s
  max_retries: 1
`), 0600))

	cfg := New()
	assert.Equal(t, 25, cfg.Batch.ChunkSize)
	assert.Equal(t, 1, cfg.Batch.MaxRetries)
	assert.Equal(t, OutputFormatTable, cfg.Output.DefaultFormat)
}

func TestNew_IgnoresBrokenConfigFile(t *testing.T) {
	home := isolateHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, configFileName), []byte("{{{"), 0600))

	cfg := New()
	assert.Equal(t, Default().Batch, cfg.Batch)
}

func TestEnsureConfigDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv(EnvHome, "")
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)

	require.NoError(t, EnsureConfigDir())

	stat, err := os.Stat(filepath.Join(tmpHome, ".batchrun"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDir(t *testing.T) {
	isolateHome(t)
	tmpDir := t.TempDir()
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "subdir", "test.log")

	require.NoError(t, EnsureLogDir())

	stat, err := os.Stat(filepath.Join(tmpDir, "logs", "subdir"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDirError(t *testing.T) {
	isolateHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)
	cfg := GetGlobalConfig()

	// A regular file cannot be used as a parent directory.
	tmpFile := filepath.Join(t.TempDir(), "test-file")
	require.NoError(t, os.WriteFile(tmpFile, nil, 0600))
	cfg.Logging.File = filepath.Join(tmpFile, "subdir", "test.log")

	assert.Error(t, EnsureLogDir())
}

func TestGetConfigDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv(EnvHome, "/opt/batchrun")
		dir, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/opt/batchrun", dir)
	})

	t.Run("home directory", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv(EnvHome, "")
		t.Setenv("HOME", tmpHome)
		t.Setenv("USERPROFILE", tmpHome)

		dir, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpHome, ".batchrun"), dir)
	})
}

func TestConfigFilePath(t *testing.T) {
	home := isolateHome(t)

	path, err := ConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml"), path)

	t.Setenv(EnvConfig, "/etc/batchrun.yaml")
	path, err = ConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/batchrun.yaml", path)
}

func TestToLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Level: "info", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Caller)

	lc = LoggingConfig{Level: "debug", Format: "console", File: "/tmp/x.log"}
	got = lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, "/tmp/x.log", got.File)
	assert.True(t, got.Caller)
}

func TestCacheDir(t *testing.T) {
	home := isolateHome(t)

	cc := CacheConfig{}
	dir, err := cc.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache"), dir)

	cc.Dir = "/var/cache/batchrun"
	dir, err = cc.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/batchrun", dir)
}
