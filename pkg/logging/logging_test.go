package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/flasharena/pkg/data"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "arena.log")

	logger, err := New(data.LogConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("round recorded")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "round recorded")
	assert.Contains(t, string(content), `"logger":"flasharena"`)
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")

	logger, err := New(data.LogConfig{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("visible")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "visible")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(data.LogConfig{Level: "chatty", Format: "console"})
	assert.ErrorIs(t, err, data.ErrInvalidLogConfig)
}

func TestForTUIWithoutFileIsSilent(t *testing.T) {
	logger, err := ForTUI(data.LogConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l, err := ForTUI(data.DefaultLogConfig())
	require.NoError(t, err)
	assert.Same(t, l, OrNop(l))
}
