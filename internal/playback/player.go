package playback

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/google/uuid"
)

// ControlKind: тип управляющего события плеера
type ControlKind string

const (
	ControlLoaded  ControlKind = "loaded"
	ControlPlay    ControlKind = "play"
	ControlPause   ControlKind = "pause"
	ControlStopped ControlKind = "stopped" // курсор дошёл до границы
	ControlSeek    ControlKind = "seek"
)

// Frame: результаты одного тика
type Frame struct {
	LoadID  uuid.UUID
	Time    float64
	Results []Result
}

// Control: изменение состояния плеера
type Control struct {
	LoadID    uuid.UUID
	Kind      ControlKind
	Time      float64
	End       float64
	Direction Direction
}

// Sink принимает кадры и события плеера.
// Методы вызываются под мьютексом плеера и не должны обращаться к нему.
type Sink interface {
	Render(f Frame)
	Control(c Control)
}

// DefaultTickInterval: период тиков по умолчанию (~60 Гц)
const DefaultTickInterval = 16 * time.Millisecond

// Player двигает курсор диспетчера от time.Ticker и отдаёт кадры в Sink.
// Одновременно работает не больше одного тикера.
type Player struct {
	mu         sync.Mutex
	dispatcher *Dispatcher
	sink       Sink
	interval   time.Duration
	window     float64

	cancel context.CancelFunc
	done   chan struct{}
}

// PlayerOption настраивает Player
type PlayerOption func(*Player)

// WithTickInterval задаёт период тиков
func WithTickInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithWindow задаёт ширину окна времени для экстракторов
func WithWindow(w float64) PlayerOption {
	return func(p *Player) {
		if w >= 0 {
			p.window = w
		}
	}
}

// NewPlayer создаёт плеер поверх диспетчера
func NewPlayer(d *Dispatcher, sink Sink, opts ...PlayerOption) *Player {
	p := &Player{
		dispatcher: d,
		sink:       sink,
		interval:   DefaultTickInterval,
		window:     0.033,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load останавливает тикер и только затем заменяет экстракторы.
// После загрузки в Sink уходит событие loaded и кадр для t=0.
func (p *Player) Load(ctx context.Context, c *recording.Container) error {
	p.stopTicker()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.dispatcher.Load(ctx, c); err != nil {
		return err
	}
	p.controlLocked(ControlLoaded)
	p.renderLocked(ctx)
	return nil
}

// Play запускает воспроизведение в направлении dir.
// Повторный вызов перезапускает тикер, не создавая второго.
func (p *Player) Play(ctx context.Context, dir Direction) {
	for {
		p.stopTicker()

		p.mu.Lock()
		if p.cancel != nil {
			// Тикер успел запустить другой вызов Play
			p.mu.Unlock()
			continue
		}
		p.dispatcher.Cursor().Play(dir)
		p.controlLocked(ControlPlay)

		tctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		p.cancel, p.done = cancel, done
		go p.run(tctx, done)
		p.mu.Unlock()
		return
	}
}

// Pause останавливает тикер, позиция сохраняется
func (p *Player) Pause() {
	p.stopTicker()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().Pause()
	p.controlLocked(ControlPause)
}

// Toggle переключает play/pause в текущем направлении
func (p *Player) Toggle(ctx context.Context) {
	if p.Running() {
		p.Pause()
		return
	}
	p.mu.Lock()
	dir := p.dispatcher.Cursor().Direction()
	p.mu.Unlock()
	p.Play(ctx, dir)
}

// Stop останавливает воспроизведение и возвращает курсор в 0
func (p *Player) Stop(ctx context.Context) {
	p.stopTicker()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().Stop()
	p.controlLocked(ControlPause)
	p.renderLocked(ctx)
}

// Seek переставляет курсор и отрисовывает кадр, не запуская воспроизведение
func (p *Player) Seek(ctx context.Context, t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().Seek(t)
	p.controlLocked(ControlSeek)
	p.renderLocked(ctx)
}

// Step сдвигает курсор на delta и отрисовывает кадр
func (p *Player) Step(ctx context.Context, delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().Step(delta)
	p.renderLocked(ctx)
}

// StepForward сдвигает курсор на один кадр вперёд
func (p *Player) StepForward(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().StepForward()
	p.renderLocked(ctx)
}

// StepBackward сдвигает курсор на один кадр назад
func (p *Player) StepBackward(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Cursor().StepBackward()
	p.renderLocked(ctx)
}

// SetSpeed задаёт делитель скорости
func (p *Player) SetSpeed(divisor float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatcher.Cursor().SetSpeed(divisor)
}

// Current возвращает позицию курсора
func (p *Player) Current() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatcher.Cursor().Current()
}

// Running сообщает, идёт ли воспроизведение
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatcher.Cursor().Running()
}

// Wait ждёт остановки текущего тикера (граница, Pause или отмена контекста)
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close останавливает тикер и отбрасывает экстракторы
func (p *Player) Close() {
	p.stopTicker()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher.Close()
}

// stopTicker отменяет тикер и ждёт выхода его горутины.
// Мьютекс отпускается до ожидания: горутина берёт его на каждом тике.
func (p *Player) stopTicker() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			p.mu.Lock()
			// Тикер могли отменить, пока мы ждали мьютекс
			if ctx.Err() != nil {
				p.mu.Unlock()
				return
			}
			running := p.dispatcher.Cursor().Tick(dt)
			p.renderLocked(ctx)
			if !running {
				p.controlLocked(ControlStopped)
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}
	}
}

func (p *Player) renderLocked(ctx context.Context) {
	results := p.dispatcher.RenderTick(ctx, p.window)
	if p.sink != nil {
		p.sink.Render(Frame{
			LoadID:  p.dispatcher.LoadID(),
			Time:    p.dispatcher.Cursor().Current(),
			Results: results,
		})
	}
}

func (p *Player) controlLocked(kind ControlKind) {
	if p.sink == nil {
		return
	}
	cur := p.dispatcher.Cursor()
	p.sink.Control(Control{
		LoadID:    p.dispatcher.LoadID(),
		Kind:      kind,
		Time:      cur.Current(),
		End:       cur.End(),
		Direction: cur.Direction(),
	})
}
