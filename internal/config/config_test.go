package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := writeYAML(t, "storage:\n  type: local\n  local_path: "+filepath.Join(t.TempDir(), "archive")+"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultEngineConfig(), cfg.Engine)
	assert.Equal(t, DefaultReminderConfig(), cfg.Reminder)
	assert.Equal(t, 30*time.Second, cfg.Lease.TTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.DirExists(t, cfg.Storage.LocalPath)
	assert.Equal(t, 50, cfg.Redis.PoolSize)
	assert.Equal(t, LogConfig{File: "logs/studyplan.log", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30}, cfg.Log)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := writeYAML(t, `
server:
  port: "9090"
storage:
  type: minio
engine:
  weak_topic_threshold: 0.3
  prediction_debounce: 5s
  auto_adapt: false
reminder:
  default_time: "18:30"
  sweep_interval: 0s
`)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 0.3, cfg.Engine.WeakTopicThreshold)
	assert.Equal(t, 5*time.Second, cfg.Engine.PredictionDebounce)
	assert.False(t, cfg.Engine.AutoAdapt)
	assert.Equal(t, "18:30", cfg.Reminder.DefaultTime)
	assert.Zero(t, cfg.Reminder.SweepInterval)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeYAML(t, "server:\n  mode: release\njwt:\n  secret: short\nstorage:\n  type: minio\n")
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"threshold zero", func(e *EngineConfig) { e.WeakTopicThreshold = 0 }},
		{"high below weak", func(e *EngineConfig) { e.HighSeverityThreshold = 0.2 }},
		{"horizon over max", func(e *EngineConfig) { e.MaxHorizonDays = 10 }},
		{"session zero", func(e *EngineConfig) { e.SessionMinutes = 0 }},
		{"weak interval", func(e *EngineConfig) { e.MaxWeakIntervalDays = 8 }},
		{"level range", func(e *EngineConfig) { e.MinLevel, e.MaxLevel = 5, 4 }},
	}

	require.NoError(t, DefaultEngineConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := DefaultEngineConfig()
			tt.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}
