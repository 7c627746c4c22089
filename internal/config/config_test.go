package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-systems/qagov/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Bus.WorkerCount)
	assert.Equal(t, 1.05, cfg.Trust.SuccessMultiplier)
	assert.Equal(t, 0.9, cfg.Trust.FailureMultiplier)
	assert.Equal(t, 0.1, cfg.Trust.Minimum)
	assert.Equal(t, 1.5, cfg.Trust.Maximum)
	assert.Equal(t, 50, cfg.Arbitration.MaxQueue)
	assert.Equal(t, 30*time.Second, cfg.Arbitration.StaleAfter)
	assert.Equal(t, 3, cfg.Drift.Threshold)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qagov.yaml")
	content := []byte(`
bus:
  worker_count: 1
trust:
  storage_dir: /tmp/ledger
  flush_interval: 5
drift:
  window_size: 5
  threshold: 2
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Bus.WorkerCount)
	assert.Equal(t, "/tmp/ledger", cfg.Trust.StorageDir)
	assert.Equal(t, 5, cfg.Trust.FlushInterval)
	assert.Equal(t, 5, cfg.Drift.WindowSize)
	assert.Equal(t, 2, cfg.Drift.Threshold)
	// Untouched sections keep defaults.
	assert.Equal(t, 50, cfg.Arbitration.MaxQueue)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Bus.WorkerCount = 0 }},
		{"zero queue", func(c *config.Config) { c.Bus.QueueSize = 0 }},
		{"empty storage dir", func(c *config.Config) { c.Trust.StorageDir = "" }},
		{"inverted trust bounds", func(c *config.Config) { c.Trust.Minimum = 2.0 }},
		{"zero flush interval", func(c *config.Config) { c.Trust.FlushInterval = 0 }},
		{"zero max queue", func(c *config.Config) { c.Arbitration.MaxQueue = 0 }},
		{"zero stale after", func(c *config.Config) { c.Arbitration.StaleAfter = 0 }},
		{"zero window size", func(c *config.Config) { c.Drift.WindowSize = 0 }},
		{"zero threshold", func(c *config.Config) { c.Drift.Threshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, config.Default().Validate())
}
