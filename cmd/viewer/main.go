package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/annel0/sensor-playback/internal/codec"
	"github.com/annel0/sensor-playback/internal/config"
	"github.com/annel0/sensor-playback/internal/eventbus"
	_ "github.com/annel0/sensor-playback/internal/extractor/implementations"
	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/annel0/sensor-playback/internal/observability"
	"github.com/annel0/sensor-playback/internal/playback"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/slicer"
	"github.com/annel0/sensor-playback/internal/synth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config (default: $PLAYBACK_CONFIG)")
		input      = flag.String("input", "", "Recording dump (.json or .json.zst); empty means a synthetic recording")
		seed       = flag.Int64("seed", 42, "Seed for the synthetic recording")
		start      = flag.Float64("start", -1, "Crop start time, seconds (<0 means from the beginning)")
		stop       = flag.Float64("stop", -1, "Crop stop time, seconds (<0 means to the end)")
		backward   = flag.Bool("backward", false, "Play from the end to the beginning")
		metrics    = flag.Bool("metrics", true, "Serve Prometheus /metrics")
		status     = flag.Duration("status", time.Second, "Status line interval")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logOpts, err := cfg.Logging.LoggerOptions()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации логирования: %v", err)
	}
	logging.Configure(logOpts)
	if err := logging.InitDefaultLogger("viewer"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()
	if err := cfg.Logging.ApplyComponentLevels(logging.GetLoggerManager()); err != nil {
		log.Fatalf("❌ Ошибка уровней логирования компонентов: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info("🎞️ Запуск плеера записей")
	if len(cfg.Logging.Components) > 0 {
		logging.Info("🪵 Компоненты логирования: %s", strings.Join(logging.GetLoggerManager().ListComponents(), ", "))
	}

	// === ТЕЛЕМЕТРИЯ И МЕТРИКИ ===
	shutdownTelemetry, err := observability.SetupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	playbackMetrics := observability.NewPlaybackMetrics(reg)
	procStats := observability.NewProcessStats()
	procStats.Register(reg)

	// === ШИНА ===
	bus := eventbus.NewMemoryBus(cfg.Bus.GetCapacity())
	eventbus.Init(bus)
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start()
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Error("❌ Ошибка подписки логгера на шину: %v", err)
	}

	var rendered, failed atomic.Int64
	if _, err := bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.EventFrames}}, func(_ context.Context, ev *eventbus.Envelope) {
		frame, ok := ev.Payload.(playback.Frame)
		if !ok {
			return
		}
		rendered.Add(1)
		for _, r := range frame.Results {
			if r.Err != nil {
				failed.Add(1)
			}
		}
	}); err != nil {
		logging.Error("❌ Ошибка подписки на кадры: %v", err)
	}

	if *metrics {
		srv := observability.StartHTTP(cfg.Metrics.GetMetricsAddr(), reg)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// === ЗАПИСЬ ===
	rec, err := loadRecording(*input, *seed)
	if err != nil {
		logging.Error("❌ Ошибка загрузки записи: %v", err)
		os.Exit(1)
	}
	if *start >= 0 || *stop >= 0 {
		var opts []slicer.CropOption
		if *start >= 0 {
			opts = append(opts, slicer.WithStart(*start))
		}
		if *stop >= 0 {
			opts = append(opts, slicer.WithStop(*stop))
		}
		if rec, err = slicer.CropRecording(rec, opts...); err != nil {
			logging.Error("❌ Ошибка обрезки записи: %v", err)
			os.Exit(1)
		}
		logging.Info("✂️ Запись обрезана: [%v, %v]", *rec.Info.StartTime, *rec.Info.StopTime)
	}

	// === ПЛЕЕР ===
	dispatcher := playback.NewDispatcher(
		playback.WithExtractorOptions(cfg.Extractors),
		playback.WithParallelism(cfg.Playback.ParallelThreshold, cfg.Playback.ParallelLimit),
		playback.WithMetrics(playbackMetrics),
	)
	dispatcher.Cursor().SetFrameStep(cfg.Playback.FrameStep)

	player := playback.NewPlayer(dispatcher, eventbus.NewBusSink(ctx, bus),
		playback.WithTickInterval(cfg.Playback.TickInterval()),
		playback.WithWindow(cfg.Playback.TimeWindow),
	)
	if err := player.SetSpeed(cfg.Playback.Speed); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	if err := player.Load(ctx, rec.Data); err != nil {
		logging.Error("❌ Ошибка загрузки контейнера: %v", err)
		os.Exit(1)
	}

	dir := playback.Forward
	if *backward {
		dir = playback.Backward
		player.Seek(ctx, dispatcher.Cursor().End())
	}
	logging.Info("▶️ Воспроизведение %s: потоков %d, длительность %.3f с", dir, dispatcher.Len(), dispatcher.Cursor().End())
	player.Play(ctx, dir)

	finished := make(chan struct{})
	go func() {
		player.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(*status)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			logging.Info("📊 t=%.3f кадров=%d ошибок=%d %s", player.Current(), rendered.Load(), failed.Load(), procStats.StatusLine())
		case <-finished:
			break loop
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал, завершение работы...")
			break loop
		}
	}

	// === GRACEFUL SHUTDOWN ===
	player.Close()
	bus.Close()
	busMetrics.Stop()
	logging.Info("👋 Готово: t=%.3f кадров=%d ошибок=%d", player.Current(), rendered.Load(), failed.Load())
}

func loadRecording(path string, seed int64) (*recording.Recording, error) {
	if path == "" {
		opts := synth.DefaultOptions()
		opts.Seed = seed
		logging.Info("🧪 Синтетическая запись (seed=%d)", seed)
		return synth.New(opts).Recording(), nil
	}
	rec, err := codec.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if rec.Data == nil {
		return nil, errors.New("recording has no data")
	}
	logging.Info("📂 Запись %s прочитана", path)
	return rec, nil
}
