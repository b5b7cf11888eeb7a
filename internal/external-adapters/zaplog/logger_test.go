package zaplog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knes1/elktail-release/internal/domain/interfaces"
)

var _ interfaces.Logger = (*Logger)(nil)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("compiled", interfaces.F("target", "linux/amd64"), interfaces.F("exit_code", 0))
	logger.Error("compile failed", interfaces.F("error", errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "compiled", first["msg"])
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "linux/amd64", first["target"])
	assert.EqualValues(t, 0, first["exit_code"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "boom", second["error"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestLogger_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "release.log")
	logger, err := New(Config{Level: "debug", LogFile: logFile, MaxSize: 1}, &bytes.Buffer{})
	require.NoError(t, err)

	logger.Debug("to file", interfaces.F("k", "v"))
	logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
