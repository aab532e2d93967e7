package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithWriterTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", "text", &buf)
	log.Info("hello", KeyUser, "alice")

	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "alice")
}

func TestNewLoggerWithWriterJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", "json", &buf)
	log.Info("hello")

	require.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestNewLoggerWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", "text", &buf)
	log.Debug("should not appear")
	log.Info("should not appear either")
	log.Warn("should appear")

	require.NotContains(t, buf.String(), "should not appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestNopLoggerDiscardsOutput(t *testing.T) {
	log := NopLogger()
	require.NotPanics(t, func() { log.Info("anything") })
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	require.Equal(t, parseLevel("nonsense"), parseLevel("info"))
}
