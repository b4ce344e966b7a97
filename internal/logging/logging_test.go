package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponent_AddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "text", &buf).Component("pipeline")
	logger.Info("stage started", "stage", "target_structure")

	out := buf.String()
	assert.Contains(t, out, "component=pipeline")
	assert.Contains(t, out, "stage=target_structure")
	assert.Contains(t, out, "level=INFO")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("info", "json", &buf).Component("api").Info("request")

	assert.Contains(t, buf.String(), `"component":"api"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNewLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("info", "pretty", &buf).Error("poll failed", "err", errors.New("boom"))

	assert.Contains(t, buf.String(), "poll failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestNewLogger_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", &buf)
	logger.Info("suppressed")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
