package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"studyplan_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		level, mode string
		want        zapcore.Level
	}{
		{"", "debug", zap.DebugLevel},
		{"", "release", zap.InfoLevel},
		{"warn", "debug", zap.WarnLevel},
		{"ERROR", "release", zap.ErrorLevel},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.level, c.mode)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "level=%q mode=%q", c.level, c.mode)
	}

	_, err := ParseLevel("loud", "debug")
	assert.Error(t, err)
}

func TestNewWritesJSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "studyplan.log")
	l, err := New(config.LogConfig{Level: "info", File: file, MaxSizeMB: 1}, "release")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("plan generated", zap.String("studentID", "s1"))
	_ = l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "plan generated", entry["msg"])
	assert.Equal(t, "s1", entry["studentID"])
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	before := Log
	cfg := &config.Config{Log: config.LogConfig{Level: "loud"}}
	assert.Error(t, InitLogger(cfg))
	assert.Same(t, before, Log)
}
