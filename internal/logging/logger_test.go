package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace": TRACE, "DEBUG": DEBUG, "": INFO, " info ": INFO, "warning": WARN, "Error": ERROR,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("playback", &buf, INFO)

	l.Debug("скрыто")
	l.Info("загружено %d потоков", 3)
	l.Error("ошибка")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[INFO] [playback] загружено 3 потоков", lines[0])
	assert.Equal(t, "[ERROR] [playback] ошибка", lines[1])

	buf.Reset()
	l.SetLevel(TRACE, ERROR)
	l.Trace("видно")
	assert.Contains(t, buf.String(), "[TRACE]")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ничего") })
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	prev := currentOptions()
	Configure(Options{Dir: dir, ConsoleLevel: ERROR, FileLevel: DEBUG})
	defer Configure(prev)

	l, err := NewLogger("slicer")
	require.NoError(t, err)
	l.Debug("в файл")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "повторное закрытие безопасно")

	files, err := filepath.Glob(filepath.Join(dir, "slicer_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [slicer] в файл")
}

func TestLoggerManager(t *testing.T) {
	lm := GetLoggerManager()
	a := GetComponentLogger("test-component")
	b := GetComponentLogger("test-component")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "test-component")

	require.NoError(t, lm.SetLogLevel("test-component", WARN, ERROR))
	assert.Error(t, lm.SetLogLevel("missing-component", WARN, ERROR))
}
