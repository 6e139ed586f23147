package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/metamonitor/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{" error ", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json"}, Options{Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug().Msg("hidden")
	sl := Component(logger, "session")
	sl.Info().Str("id", "abc").Msg("created")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "abc", entry["id"])
	assert.Equal(t, "created", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_ConsoleNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "warn", Format: "console"}, Options{Console: &buf, NoColor: true})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "WRN")
	assert.NotContains(t, out, "\x1b[")
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "error", Format: "json"}, Options{Console: &buf, Verbose: true})
	require.NoError(t, err)

	logger.Debug().Msg("trace")
	assert.Contains(t, buf.String(), "trace")
}

func TestNew_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "metamonitor.log")

	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path}, Options{Console: &buf})
	require.NoError(t, err)

	logger.Info().Msg("persisted")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")
	assert.Contains(t, buf.String(), "persisted")
}

func TestNew_BadFilePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, _, err := New(config.LoggingConfig{Level: "info", File: filepath.Join(blocker, "x.log")}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create log directory")
}

func TestSetGlobal(t *testing.T) {
	prevLogger, prevCtx := zlog.Logger, zerolog.DefaultContextLogger
	t.Cleanup(func() {
		zlog.Logger = prevLogger
		zerolog.DefaultContextLogger = prevCtx
	})

	var buf bytes.Buffer
	SetGlobal(zerolog.New(&buf))

	zlog.Info().Msg("global")
	zerolog.Ctx(context.Background()).Info().Msg("from context")

	assert.Contains(t, buf.String(), "global")
	assert.Contains(t, buf.String(), "from context")
}

func TestDetachContextWithTimeout(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	ctx, stop := DetachContextWithTimeout(parent, time.Minute)
	defer stop()

	assert.NoError(t, ctx.Err(), "detached context must survive parent cancellation")
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}
