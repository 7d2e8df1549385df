// Package playback синхронно воспроизводит все потоки контейнера от одного курсора времени.
package playback

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/annel0/sensor-playback/internal/observability"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/registry"
	"github.com/annel0/sensor-playback/internal/slicer"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Параметры параллельной отрисовки по умолчанию
const (
	DefaultParallelThreshold = 8
	DefaultParallelLimit     = 4
)

// Result: кадр одного потока за тик. При ошибке Image == nil,
// а Err содержит *extractor.Failure.
type Result struct {
	Path     string
	DataType string
	Image    *extractor.Image
	Err      error
}

// slot: экстрактор одного потока; err != nil для потоков, чей экстрактор не создался
type slot struct {
	path     string
	dataType string
	ext      extractor.Extractor
	err      error
}

// Dispatcher владеет экстракторами текущей загрузки и курсором.
// Dispatcher не синхронизирован: все вызовы идут из одного контекста (см. Player).
type Dispatcher struct {
	registry          *extractor.Registry
	options           map[string]extractor.Options
	parallelThreshold int
	parallelLimit     int
	metrics           *observability.PlaybackMetrics
	logger            *logging.Logger

	cursor *Cursor
	slots  []slot
	loadID uuid.UUID
}

// DispatcherOption настраивает Dispatcher
type DispatcherOption func(*Dispatcher)

// WithRegistry задаёт реестр экстракторов (по умолчанию extractor.Default())
func WithRegistry(reg *extractor.Registry) DispatcherOption {
	return func(d *Dispatcher) { d.registry = reg }
}

// WithExtractorOptions задаёт настройки экстракторов по типу данных
func WithExtractorOptions(opts map[string]extractor.Options) DispatcherOption {
	return func(d *Dispatcher) { d.options = opts }
}

// WithParallelism включает параллельную отрисовку, когда потоков больше threshold;
// limit ограничивает число одновременных вызовов (<= 0: без ограничения).
func WithParallelism(threshold, limit int) DispatcherOption {
	return func(d *Dispatcher) {
		d.parallelThreshold = threshold
		d.parallelLimit = limit
	}
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *observability.PlaybackMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher создаёт пустой диспетчер с остановленным курсором в 0
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:          extractor.Default(),
		parallelThreshold: DefaultParallelThreshold,
		parallelLimit:     DefaultParallelLimit,
		logger:            logging.GetPlaybackLogger(),
		cursor:            NewCursor(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cursor возвращает курсор диспетчера
func (d *Dispatcher) Cursor() *Cursor { return d.cursor }

// LoadID идентифицирует текущую загрузку; uuid.Nil до первой загрузки
func (d *Dispatcher) LoadID() uuid.UUID { return d.loadID }

// Len возвращает число потоков текущей загрузки, включая неисправные
func (d *Dispatcher) Len() int { return len(d.slots) }

// Paths возвращает пути потоков в порядке обхода
func (d *Dispatcher) Paths() []string {
	out := make([]string, len(d.slots))
	for i, s := range d.slots {
		out[i] = s.path
	}
	return out
}

// Load заменяет текущий набор экстракторов экстракторами для потоков c.
// Старые экстракторы отбрасываются целиком, курсор сбрасывается в 0,
// верхняя граница: последняя метка времени контейнера.
// Экстрактор, который не удалось создать, остаётся в наборе как неисправный.
func (d *Dispatcher) Load(ctx context.Context, c *recording.Container) error {
	_, span := observability.Tracer().Start(ctx, "playback.Load")
	defer span.End()

	d.teardown()
	d.cursor.Reset(0)
	if c == nil {
		err := fmt.Errorf("load nil container: %w", recording.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	skipped := 0
	var slots []slot
	for entry := range registry.Discover(c, registry.OnUnsupported(func(registry.Unsupported) { skipped++ })) {
		ext, err := d.build(entry)
		if err != nil {
			d.logger.Warn("❌ Экстрактор %s (%s) не создан: %v", entry.Path, entry.DataType, err)
		}
		slots = append(slots, slot{path: entry.Path, dataType: entry.DataType, ext: ext, err: err})
	}

	end, ok := slicer.LastTimestamp(c)
	if !ok {
		end = 0
	}

	d.slots = slots
	d.loadID = uuid.New()
	d.cursor.Reset(end)
	d.metrics.ObserveLoad(len(slots))
	d.metrics.SetCursor(0)

	span.SetAttributes(
		attribute.String("playback.load_id", d.loadID.String()),
		attribute.Int("playback.streams", len(slots)),
		attribute.Int("playback.skipped", skipped),
		attribute.Float64("playback.end", end),
	)
	d.logger.Info("📂 Загрузка %s: потоков %d, пропущено %d, длительность %.3f с", d.loadID, len(slots), skipped, end)
	return nil
}

// build создаёт экстрактор; паника конструктора превращается в ошибку
func (d *Dispatcher) build(entry registry.Entry) (ext extractor.Extractor, err error) {
	defer func() {
		if r := recover(); r != nil {
			ext, err = nil, fmt.Errorf("constructor panic: %v", r)
		}
	}()
	return d.registry.New(entry.DataType, entry.Stream)
}

// Close отбрасывает экстракторы текущей загрузки
func (d *Dispatcher) Close() {
	d.teardown()
	d.cursor.Reset(0)
}

func (d *Dispatcher) teardown() {
	d.slots = nil
	d.loadID = uuid.Nil
}

// RenderTick вызывает все экстракторы для текущей позиции курсора и окна window.
// Результаты идут в порядке обхода контейнера; ошибка или паника одного
// экстрактора не мешает остальным и попадает в Result.Err.
func (d *Dispatcher) RenderTick(ctx context.Context, window float64) []Result {
	ctx, span := observability.Tracer().Start(ctx, "playback.RenderTick")
	defer span.End()

	started := time.Now()
	t := d.cursor.Current()
	results := make([]Result, len(d.slots))

	if len(d.slots) > d.parallelThreshold {
		g, gctx := errgroup.WithContext(ctx)
		if d.parallelLimit > 0 {
			g.SetLimit(d.parallelLimit)
		}
		for i := range d.slots {
			// Каждая горутина пишет только в свой слот results
			g.Go(func() error {
				results[i] = d.render(gctx, d.slots[i], t, window)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range d.slots {
			results[i] = d.render(ctx, d.slots[i], t, window)
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			d.metrics.ObserveFailure(r.DataType)
			d.logger.Debug("⚠️ %v", r.Err)
		}
	}
	d.metrics.ObserveTick(t, time.Since(started))

	span.SetAttributes(
		attribute.Float64("playback.cursor", t),
		attribute.Int("playback.streams", len(results)),
		attribute.Int("playback.failed", failed),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d extractors failed", failed))
	}
	return results
}

func (d *Dispatcher) render(ctx context.Context, s slot, t, window float64) (res Result) {
	res = Result{Path: s.path, DataType: s.dataType}
	fail := func(err error) Result {
		res.Image = nil
		res.Err = &extractor.Failure{Path: s.path, DataType: s.dataType, Err: err}
		return res
	}

	if s.err != nil {
		return fail(s.err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("💥 Паника экстрактора %s: %v\n%s", s.path, r, debug.Stack())
			res = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	img, err := s.ext.Frame(t, window, d.options[s.dataType])
	if err != nil {
		return fail(err)
	}
	res.Image = img
	return res
}
