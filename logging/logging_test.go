package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/dargueta/rompatch/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"INFO":    logging.LevelInfo,
		"":        logging.LevelInfo,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
	}
	for input, expected := range tests {
		level, err := logging.ParseLevel(input)
		require.NoError(t, err, "failed to parse %q", input)
		assert.Equal(t, expected, level)
	}

	_, err := logging.ParseLevel("chatty")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	format, err := logging.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, logging.FormatJSON, format)

	_, err = logging.ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewLogger__JSONWithRFC3339Time(t *testing.T) {
	var buffer bytes.Buffer
	logger := logging.NewLogger(&buffer, logging.LevelInfo, logging.FormatJSON)
	logger.With("run_id", "abc").Info("slot written", "slot", "club:3")
	logger.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry), "expected exactly one JSON line")
	assert.Equal(t, "slot written", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "club:3", entry["slot"])

	_, err := time.Parse(time.RFC3339, entry["time"].(string))
	assert.NoError(t, err, "timestamp isn't RFC3339")
}

func TestSetLogger(t *testing.T) {
	previous := logging.GetLogger()
	defer logging.SetLogger(previous)

	var buffer bytes.Buffer
	logging.SetLogger(logging.NewLogger(&buffer, logging.LevelWarn, logging.FormatText))
	logging.Info("dropped")
	logging.Warn("kept", "team", "Arsenal")
	logging.With("run_id", "xyz").Error("failed")

	output := buffer.String()
	assert.NotContains(t, output, "dropped")
	assert.Contains(t, output, "msg=kept team=Arsenal")
	assert.Contains(t, output, "run_id=xyz")
}
