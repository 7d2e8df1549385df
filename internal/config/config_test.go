package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithoutPathReturnsDefault(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DefaultTickInterval, cfg.Playback.TickInterval())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
playback:
  tick_interval_ms: 40
  time_window: 0.05
  speed: 2
extractors:
  dvs:
    polarised: false
    contrast: 5
  pose6q:
    interpolate: true
    perspective: true
logging:
  level: DEBUG
metrics:
  addr: ":9100"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Millisecond, cfg.Playback.TickInterval())
	assert.Equal(t, 0.05, cfg.Playback.TimeWindow)
	assert.Equal(t, 2.0, cfg.Playback.Speed)
	assert.Equal(t, DefaultFrameStep, cfg.Playback.FrameStep, "незаданное поле берётся из дефолтов")
	assert.Equal(t, DefaultParallelThreshold, cfg.Playback.ParallelThreshold)

	assert.Equal(t, 5.0, cfg.OptionsFor("dvs").Contrast)
	assert.False(t, cfg.OptionsFor("dvs").Polarised)
	assert.True(t, cfg.OptionsFor("pose6q").Interpolate)
	assert.Zero(t, cfg.OptionsFor("frame"))

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.GetMetricsAddr())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "bus:\n  capacity: 16\n")
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Bus.GetCapacity())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "playback: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "playback:\n  speed: -1\n"))
	assert.Error(t, err)
}

func TestLoggerOptions(t *testing.T) {
	l := LoggingConfig{Level: "debug"}
	opts, err := l.LoggerOptions()
	require.NoError(t, err)
	assert.Equal(t, logging.DEBUG, opts.ConsoleLevel)
	assert.Empty(t, opts.Dir, "без to_file логи только в консоль")

	l = LoggingConfig{Level: "warn", ToFile: true}
	opts, err = l.LoggerOptions()
	require.NoError(t, err)
	assert.Equal(t, "logs", opts.Dir)

	l = LoggingConfig{Level: "loud"}
	_, err = l.LoggerOptions()
	assert.Error(t, err)
}

func TestEnvFallback(t *testing.T) {
	var m MetricsConfig
	var b BusConfig
	var tc TelemetryConfig

	t.Setenv("PLAYBACK_METRICS_ADDR", "")
	t.Setenv("PLAYBACK_BUS_CAPACITY", "")
	t.Setenv("OTEL_SERVICE_NAME", "")
	assert.Equal(t, DefaultMetricsAddr, m.GetMetricsAddr())
	assert.Equal(t, DefaultBusCapacity, b.GetCapacity())
	assert.Equal(t, DefaultServiceName, tc.GetServiceName())

	t.Setenv("PLAYBACK_METRICS_ADDR", ":7000")
	t.Setenv("PLAYBACK_BUS_CAPACITY", "not-a-number")
	t.Setenv("OTEL_SERVICE_NAME", "viewer")
	assert.Equal(t, ":7000", m.GetMetricsAddr())
	assert.Equal(t, DefaultBusCapacity, b.GetCapacity())
	assert.Equal(t, "viewer", tc.GetServiceName())

	m.Addr = ":8000"
	assert.Equal(t, ":8000", m.GetMetricsAddr(), "конфиг важнее окружения")
}

func TestApplyComponentLevels(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
  components:
    cfg-test-slicer: error
    cfg-test-bus: trace
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	lm := logging.GetLoggerManager()
	require.NoError(t, cfg.Logging.ApplyComponentLevels(lm))

	components := lm.ListComponents()
	assert.Contains(t, components, "cfg-test-slicer")
	assert.Contains(t, components, "cfg-test-bus")
	assert.IsNonDecreasing(t, components, "список компонентов отсортирован")

	console, file := logging.GetComponentLogger("cfg-test-slicer").Levels()
	assert.Equal(t, logging.ERROR, console)
	assert.Equal(t, logging.DEBUG, file)
	console, _ = logging.GetComponentLogger("cfg-test-bus").Levels()
	assert.Equal(t, logging.TRACE, console)

	bad := LoggingConfig{Components: map[string]string{"cfg-test-bad": "loud"}}
	assert.Error(t, bad.ApplyComponentLevels(lm))
}
