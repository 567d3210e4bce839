package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
site:
  base_url: http://mirror.test
  user_agent: file_agent

download:
  num_images: 50
  max_retries: 8
  batch_size: 10
  timeout: 1m30s
  cache_size: 128

rate_limit:
  requests_per_minute: 120
  strategy: sliding_window

output:
  base_directory: /file/output
  create_keyword_folders: false
  export_manifest: true

metrics:
  enabled: true
  addr: 127.0.0.1:9191

notifications:
  enabled: false
  notification_type: desktop

logging:
  level: warn
  file: /var/log/wall-do.log
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, "http://mirror.test", cfg.Site.BaseURL)
	assert.Equal(t, "file_agent", cfg.Site.UserAgent)
	assert.Equal(t, 50, cfg.Download.NumImages)
	assert.Equal(t, 8, cfg.Download.MaxRetries)
	assert.Equal(t, 10, cfg.Download.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 128, cfg.Download.CacheSize)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "sliding_window", cfg.RateLimit.Strategy)
	assert.Equal(t, "/file/output", cfg.Output.BaseDirectory)
	assert.False(t, cfg.Output.CreateKeywordFolders)
	assert.True(t, cfg.Output.ExportManifest)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Addr)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "desktop", cfg.Notifications.NotificationType)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/var/log/wall-do.log", cfg.Logging.File)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("download: [unclosed"), 0644))

		cfg := DefaultConfig()
		err := cfg.LoadFromFile(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestLoad(t *testing.T) {
	// Keep the user's own config and .env files out of the way
	t.Setenv("HOME", t.TempDir())

	t.Run("precedence order", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := `
download:
  num_images: 40
  batch_size: 6
output:
  base_directory: /file/output
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		t.Setenv("WALLDO_OUTPUT_DIR", "/env/output")
		t.Setenv("WALLDO_NUM_IMAGES", "45")

		cfg, err := Load(configPath, map[string]interface{}{"num": 12})
		require.NoError(t, err)

		// flags > env > file > defaults
		assert.Equal(t, 12, cfg.Download.NumImages)
		assert.Equal(t, "/env/output", cfg.Output.BaseDirectory)
		assert.Equal(t, 6, cfg.Download.BatchSize)
		assert.Equal(t, 5, cfg.Download.MaxRetries)
	})

	t.Run("validation failure", func(t *testing.T) {
		cfg, err := Load("", map[string]interface{}{"batch": -1})
		assert.ErrorContains(t, err, "configuration validation failed")
		assert.Nil(t, cfg)
	})

	t.Run("loads .env file", func(t *testing.T) {
		tempDir := t.TempDir()
		oldDir, _ := os.Getwd()
		defer os.Chdir(oldDir)
		require.NoError(t, os.Chdir(tempDir))

		require.NoError(t, os.WriteFile(".env", []byte("WALLDO_BATCH_SIZE=3\nWALLDO_LOG_LEVEL=error\n"), 0644))
		t.Cleanup(func() {
			os.Unsetenv("WALLDO_BATCH_SIZE")
			os.Unsetenv("WALLDO_LOG_LEVEL")
		})

		cfg, err := Load("", nil)
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.Download.BatchSize)
		assert.Equal(t, "error", cfg.Logging.Level)
	})
}
