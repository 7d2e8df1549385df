package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации плеера.
type Config struct {
	Playback   PlaybackConfig               `yaml:"playback"`
	Extractors map[string]extractor.Options `yaml:"extractors"`
	Logging    LoggingConfig                `yaml:"logging"`
	Metrics    MetricsConfig                `yaml:"metrics"`
	Telemetry  TelemetryConfig              `yaml:"telemetry"`
	Bus        BusConfig                    `yaml:"bus"`
}

type PlaybackConfig struct {
	TickIntervalMs    int     `yaml:"tick_interval_ms"`
	TimeWindow        float64 `yaml:"time_window"`
	Speed             float64 `yaml:"speed"`
	FrameStep         float64 `yaml:"frame_step"`
	ParallelThreshold int     `yaml:"parallel_threshold"`
	ParallelLimit     int     `yaml:"parallel_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Dir    string `yaml:"dir"`
	ToFile bool   `yaml:"to_file"`
	// Components задаёт уровень консоли для отдельных компонентов (playback, slicer, eventbus...)
	Components map[string]string `yaml:"components"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type BusConfig struct {
	Capacity int `yaml:"capacity"`
}

// Значения по умолчанию
const (
	DefaultTickInterval      = 16 * time.Millisecond
	DefaultTimeWindow        = 0.033
	DefaultSpeed             = 1.0
	DefaultFrameStep         = 0.016
	DefaultParallelThreshold = 8
	DefaultParallelLimit     = 4
	DefaultMetricsAddr       = ":2112"
	DefaultServiceName       = "sensor-playback"
	DefaultBusCapacity       = 1024

	// EnvConfigPath: переменная окружения с путём к YAML файлу
	EnvConfigPath = "PLAYBACK_CONFIG"
)

// Default возвращает конфигурацию без файла: плеер работает сразу,
// dvs рисуется с полярностью.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			TickIntervalMs:    int(DefaultTickInterval / time.Millisecond),
			TimeWindow:        DefaultTimeWindow,
			Speed:             DefaultSpeed,
			FrameStep:         DefaultFrameStep,
			ParallelThreshold: DefaultParallelThreshold,
			ParallelLimit:     DefaultParallelLimit,
		},
		Extractors: map[string]extractor.Options{
			"dvs": {Polarised: true, Contrast: 3},
		},
		Logging:   LoggingConfig{Level: "INFO"},
		Telemetry: TelemetryConfig{ServiceName: DefaultServiceName},
		Bus:       BusConfig{Capacity: DefaultBusCapacity},
	}
}

// TickInterval возвращает период тиков плеера
func (p *PlaybackConfig) TickInterval() time.Duration {
	if p.TickIntervalMs <= 0 {
		return DefaultTickInterval
	}
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// GetMetricsAddr возвращает адрес Prometheus с приоритетом: config -> env -> default
func (m *MetricsConfig) GetMetricsAddr() string {
	return getStringWithEnvFallback(m.Addr, "PLAYBACK_METRICS_ADDR", DefaultMetricsAddr)
}

// GetServiceName возвращает имя сервиса для трассировки
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", DefaultServiceName)
}

// GetCapacity возвращает размер буфера шины
func (b *BusConfig) GetCapacity() int {
	return getIntWithEnvFallback(b.Capacity, "PLAYBACK_BUS_CAPACITY", DefaultBusCapacity)
}

// LoggerOptions переводит секцию logging в параметры логгеров
func (l *LoggingConfig) LoggerOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return logging.Options{}, err
	}
	opts := logging.Options{ConsoleLevel: level, FileLevel: logging.DEBUG}
	if l.ToFile {
		opts.Dir = l.Dir
		if opts.Dir == "" {
			opts.Dir = "logs"
		}
	}
	return opts, nil
}

// ApplyComponentLevels выставляет уровни из logging.components.
// Логгер компонента создаётся, если его ещё нет.
func (l *LoggingConfig) ApplyComponentLevels(lm *logging.LoggerManager) error {
	for _, component := range slices.Sorted(maps.Keys(l.Components)) {
		level, err := logging.ParseLevel(l.Components[component])
		if err != nil {
			return fmt.Errorf("logging.components.%s: %w", component, err)
		}
		if _, err := lm.GetLogger(component); err != nil {
			return err
		}
		if err := lm.SetLogLevel(component, level, logging.DEBUG); err != nil {
			return err
		}
	}
	return nil
}

// OptionsFor возвращает настройки экстрактора для типа данных (нулевые, если не заданы)
func (c *Config) OptionsFor(dataType string) extractor.Options {
	return c.Extractors[dataType]
}

// Validate проверяет значения, которые нельзя исправить подстановкой дефолта
func (c *Config) Validate() error {
	if c.Playback.Speed < 0 {
		return fmt.Errorf("playback.speed must be positive, got %v", c.Playback.Speed)
	}
	if c.Playback.TimeWindow < 0 {
		return fmt.Errorf("playback.time_window must not be negative, got %v", c.Playback.TimeWindow)
	}
	if c.Playback.ParallelLimit < 0 {
		return fmt.Errorf("playback.parallel_limit must not be negative, got %d", c.Playback.ParallelLimit)
	}
	return nil
}

// fillDefaults подставляет дефолты вместо незаданных (нулевых) значений
func (c *Config) fillDefaults() {
	d := Default()
	if c.Playback.TickIntervalMs <= 0 {
		c.Playback.TickIntervalMs = d.Playback.TickIntervalMs
	}
	if c.Playback.TimeWindow == 0 {
		c.Playback.TimeWindow = d.Playback.TimeWindow
	}
	if c.Playback.Speed == 0 {
		c.Playback.Speed = d.Playback.Speed
	}
	if c.Playback.FrameStep <= 0 {
		c.Playback.FrameStep = d.Playback.FrameStep
	}
	if c.Playback.ParallelThreshold <= 0 {
		c.Playback.ParallelThreshold = d.Playback.ParallelThreshold
	}
	if c.Playback.ParallelLimit == 0 {
		c.Playback.ParallelLimit = d.Playback.ParallelLimit
	}
	if c.Extractors == nil {
		c.Extractors = d.Extractors
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", берёт путь из ENV PLAYBACK_CONFIG; без пути возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return Default(), nil // конфиг не задан: используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
