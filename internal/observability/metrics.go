package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playback"

// PlaybackMetrics собирает метрики диспетчера и плеера.
// Все методы безопасны для nil-получателя: без метрик диспетчер работает так же.
type PlaybackMetrics struct {
	loads             prometheus.Counter
	ticks             prometheus.Counter
	extractorFailures *prometheus.CounterVec
	renderDuration    prometheus.Histogram
	streamsLoaded     prometheus.Gauge
	cursorPosition    prometheus.Gauge
}

// NewPlaybackMetrics создаёт метрики и регистрирует их в reg.
// Тесты передают собственный prometheus.NewRegistry().
func NewPlaybackMetrics(reg prometheus.Registerer) *PlaybackMetrics {
	m := &PlaybackMetrics{
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Число загрузок контейнеров.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_ticks_total",
			Help:      "Число отрисованных тиков.",
		}),
		extractorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_failures_total",
			Help:      "Ошибки и паники экстракторов по типу данных.",
		}, []string{"data_type"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_tick_duration_seconds",
			Help:      "Длительность отрисовки одного тика всеми экстракторами.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25},
		}),
		streamsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_loaded",
			Help:      "Число потоков в текущей загрузке.",
		}),
		cursorPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_position_seconds",
			Help:      "Текущее положение курсора.",
		}),
	}
	reg.MustRegister(m.loads, m.ticks, m.extractorFailures, m.renderDuration, m.streamsLoaded, m.cursorPosition)
	return m
}

// ObserveLoad фиксирует новую загрузку
func (m *PlaybackMetrics) ObserveLoad(streams int) {
	if m == nil {
		return
	}
	m.loads.Inc()
	m.streamsLoaded.Set(float64(streams))
}

// ObserveTick фиксирует отрисованный тик
func (m *PlaybackMetrics) ObserveTick(cursor float64, took time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.cursorPosition.Set(cursor)
	m.renderDuration.Observe(took.Seconds())
}

// ObserveFailure фиксирует ошибку экстрактора
func (m *PlaybackMetrics) ObserveFailure(dataType string) {
	if m == nil {
		return
	}
	m.extractorFailures.WithLabelValues(dataType).Inc()
}

// SetCursor обновляет положение курсора без тика (seek, step)
func (m *PlaybackMetrics) SetCursor(cursor float64) {
	if m == nil {
		return
	}
	m.cursorPosition.Set(cursor)
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: сервер стартует в отдельной горутине, остановка через Shutdown.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
