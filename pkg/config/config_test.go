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
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.Download.WaitBetween.Std())
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout.Std())
	assert.True(t, cfg.Download.SaveMetadata)
	assert.False(t, cfg.Download.FastUpdate)
	assert.Equal(t, 3, cfg.Retry.ConnectionAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.Len(t, cfg.Retry.Schedule, 5)
	assert.Equal(t, 60*time.Second, cfg.Retry.Schedule[0].Std())
	assert.Equal(t, 1200*time.Second, cfg.Retry.Schedule[4].Std())

	assert.Equal(t, 12, cfg.RateLimit.PageRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Period.Std())

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
instagram:
  username: someone
  session_file: /tmp/session.json
download:
  dest: ./archive
  fast_update: true
  wait_between: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "someone", cfg.Instagram.Username)
	assert.Equal(t, "/tmp/session.json", cfg.Instagram.SessionFile)
	assert.Equal(t, "./archive", cfg.Download.Dest)
	assert.True(t, cfg.Download.FastUpdate)
	assert.Equal(t, 2*time.Second, cfg.Download.WaitBetween.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched fields keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout.Std())
	assert.Len(t, cfg.Retry.Schedule, 5)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGARCHIVE_SESSION_ID", "abc123")
	t.Setenv("IGARCHIVE_DEST", "/data/ig")
	t.Setenv("IGARCHIVE_WAIT_BETWEEN", "10s")
	t.Setenv("IGARCHIVE_FAST_UPDATE", "TRUE")
	t.Setenv("IGARCHIVE_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "abc123", cfg.Instagram.SessionID)
	assert.Equal(t, "/data/ig", cfg.Download.Dest)
	assert.Equal(t, 10*time.Second, cfg.Download.WaitBetween.Std())
	assert.True(t, cfg.Download.FastUpdate)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeFlags(map[string]interface{}{
		"dest":         "./photos",
		"login":        "myaccount",
		"sessionid":    "sid",
		"session-file": "/tmp/s.json",
		"fast-update":  true,
		"wait":         7 * time.Second,
	})

	assert.Equal(t, "./photos", cfg.Download.Dest)
	assert.Equal(t, "myaccount", cfg.Instagram.Username)
	assert.Equal(t, "sid", cfg.Instagram.SessionID)
	assert.Equal(t, "/tmp/s.json", cfg.Instagram.SessionFile)
	assert.True(t, cfg.Download.FastUpdate)
	assert.Equal(t, 7*time.Second, cfg.Download.WaitBetween.Std())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative wait", func(c *Config) { c.Download.WaitBetween = Duration(-time.Second) }},
		{"zero timeout", func(c *Config) { c.Download.Timeout = 0 }},
		{"empty schedule", func(c *Config) { c.Retry.Schedule = nil }},
		{"non-positive schedule entry", func(c *Config) { c.Retry.Schedule = []Duration{0} }},
		{"zero connection attempts", func(c *Config) { c.Retry.ConnectionAttempts = 0 }},
		{"zero page requests", func(c *Config) { c.RateLimit.PageRequests = 0 }},
		{"zero rate limit period", func(c *Config) { c.RateLimit.Period = 0 }},
		{"bogus log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Instagram.Username = "roundtrip"
	cfg.Download.Dest = "/tmp/rt"
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "roundtrip", loaded.Instagram.Username)
	assert.Equal(t, "/tmp/rt", loaded.Download.Dest)
}
