package log_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-accept/log"
)

func TestZapLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := log.NewZap(log.InfoLevel, buf)

	logger.Debug("hidden")
	logger.Infof("accepted fd=%d", 12)

	require.NoError(t, logger.Sync())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "accepted fd=12", entry["msg"])

	assert.False(t, logger.Enabled(log.DebugLevel))
	assert.True(t, logger.Enabled(log.ErrorLevel))
}

func TestZapWith(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := log.NewZap(log.DebugLevel, buf).With("listener", 7, 42, "skipped", "odd")

	logger.Warn("retry")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.EqualValues(t, 7, entry["listener"])
	assert.Equal(t, "odd", entry["_"])
	assert.Equal(t, "warn", entry["level"])
}

func TestDiscardLogger(t *testing.T) {
	l := log.DiscardLogger
	l.Errorf("nothing %d", 1)
	assert.False(t, l.Enabled(log.ErrorLevel))
	assert.Equal(t, log.DiscardLogger, l.With("k", "v"))
}
