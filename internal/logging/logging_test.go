package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("чепуха"), "неизвестный уровень даёт INFO")
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestFileLoggerRespectsLevels(t *testing.T) {
	prev := LogDir
	LogDir = t.TempDir()
	defer func() { LogDir = prev }()

	l, err := NewLogger("chunks")
	require.NoError(t, err)
	l.Trace("trace-сообщение")
	l.Info("info-сообщение")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "повторное закрытие безопасно")

	files, err := filepath.Glob(filepath.Join(LogDir, "chunks_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[TRACE] [chunks] trace-сообщение"), "в файл пишется всё от TRACE")
	assert.Contains(t, string(data), "info-сообщение")

	l.Info("после закрытия")
}

func TestLoggerManager(t *testing.T) {
	lm := GetLoggerManager()
	lm.Register("test-component", NewConsoleLogger("test-component", ERROR))

	assert.Same(t, lm.MustGetLogger("test-component"), GetComponentLogger("test-component"))
	assert.Contains(t, lm.ListComponents(), "test-component")
	assert.NoError(t, lm.SetLogLevel("test-component", DEBUG, DEBUG))
	assert.Error(t, lm.SetLogLevel("missing-component", DEBUG, DEBUG))

	var nilLogger *Logger
	nilLogger.Info("не паникует")
}
