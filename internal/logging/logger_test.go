package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stakepool-monitor/internal/config"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")

	logger, err := New(config.LogConfig{Level: "info", Encoding: "json", File: path, MaxSizeMB: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("snapshot stored", zap.String("stage", "persist"))
	_ = logger.Sync()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 1, "debug entries are filtered at info level")
	assert.Equal(t, "snapshot stored", lines[0]["msg"])
	assert.Equal(t, "persist", lines[0]["stage"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Contains(t, lines[0], "ts")
}

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error", ""} {
		logger, err := New(config.LogConfig{Level: level})
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}

func TestNew_Console(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
