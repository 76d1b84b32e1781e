package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 1, config.Download.Concurrency)
	assert.True(t, config.Download.EnforceCORS)
	assert.Equal(t, 30*time.Second, config.Download.Timeout)
	assert.Equal(t, ".", config.Output.Directory)
	assert.False(t, config.Output.SaveAs)
	assert.Equal(t, 0, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGHARVEST_USER_AGENT", "test-agent")
	t.Setenv("IMGHARVEST_CONCURRENCY", "4")
	t.Setenv("IMGHARVEST_DOWNLOAD_TIMEOUT", "5s")
	t.Setenv("IMGHARVEST_ENFORCE_CORS", "false")
	t.Setenv("IMGHARVEST_REQUESTS_PER_MINUTE", "30")
	t.Setenv("IMGHARVEST_OUTPUT_DIR", "/tmp/harvest")
	t.Setenv("IMGHARVEST_SAVE_AS", "true")
	t.Setenv("IMGHARVEST_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "test-agent", config.Page.UserAgent)
	assert.Equal(t, 4, config.Download.Concurrency)
	assert.Equal(t, 5*time.Second, config.Download.Timeout)
	assert.False(t, config.Download.EnforceCORS)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/tmp/harvest", config.Output.Directory)
	assert.True(t, config.Output.SaveAs)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("IMGHARVEST_CONCURRENCY", "many")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMGHARVEST_CONCURRENCY")
	assert.Equal(t, 1, config.Download.Concurrency)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
page:
  fetch_stylesheets: false
download:
  concurrency: 2
  timeout: 10s
  enforce_cors: false
output:
  directory: ./out
  save_as: true
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.False(t, config.Page.FetchStylesheets)
	assert.Equal(t, 2, config.Download.Concurrency)
	assert.Equal(t, 10*time.Second, config.Download.Timeout)
	assert.False(t, config.Download.EnforceCORS)
	assert.Equal(t, "./out", config.Output.Directory)
	assert.True(t, config.Output.SaveAs)
	assert.Equal(t, "warn", config.Logging.Level)
	// Untouched sections keep their defaults
	assert.Equal(t, 3, config.Retry.MaxAttempts)
}

func TestLoadFromFileErrors(t *testing.T) {
	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download: [unclosed"), 0644))
	assert.Error(t, config.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, true},
		{"too much concurrency", func(c *Config) { c.Download.Concurrency = 17 }, true},
		{"zero download timeout", func(c *Config) { c.Download.Timeout = 0 }, true},
		{"empty output", func(c *Config) { c.Output.Directory = "" }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }, true},
		{"negative burst", func(c *Config) { c.RateLimit.Burst = -1 }, true},
		{"unknown rate limit strategy", func(c *Config) { c.RateLimit.Strategy = "leaky" }, true},
		{"sliding window", func(c *Config) { c.RateLimit.Strategy = RateLimitSlidingWindow }, false},
		{"no retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"disabled log level", func(c *Config) { c.Logging.Level = "disabled" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := DefaultConfig()
	original.Download.Concurrency = 3
	original.Output.Directory = "/data/archives"
	require.NoError(t, original.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, original, loaded)
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"output":           "/tmp/flags",
		"save-as":          true,
		"concurrency":      5,
		"rate-limit":       90,
		"enforce-cors":     false,
		"download-timeout": 3 * time.Second,
		"log-level":        "error",
	})

	assert.Equal(t, "/tmp/flags", config.Output.Directory)
	assert.True(t, config.Output.SaveAs)
	assert.Equal(t, 5, config.Download.Concurrency)
	assert.Equal(t, 90, config.RateLimit.RequestsPerMinute)
	assert.False(t, config.Download.EnforceCORS)
	assert.Equal(t, 3*time.Second, config.Download.Timeout)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  concurrency: 2\noutput:\n  directory: /from/file\n"), 0644))

	t.Setenv("IMGHARVEST_OUTPUT_DIR", "/from/env")

	config, err := Load(path, map[string]interface{}{"concurrency": 6})
	require.NoError(t, err)

	assert.Equal(t, 6, config.Download.Concurrency)
	assert.Equal(t, "/from/env", config.Output.Directory)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
