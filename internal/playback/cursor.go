package playback

import (
	"errors"
	"fmt"
	"math"
)

// Direction: направление воспроизведения
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// String возвращает имя направления
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// DefaultFrameStep: шаг StepForward/StepBackward (один кадр при ~60 Гц)
const DefaultFrameStep = 0.016

// ErrInvalidSpeed: делитель скорости должен быть положительным
var ErrInvalidSpeed = errors.New("speed divisor must be positive")

// Cursor: единственный указатель времени воспроизведения.
// Курсор не зависит от источника тиков: его двигают явными вызовами Tick/Step/Seek.
// Методы не синхронизированы, владелец (Player) вызывает их под своим мьютексом.
type Cursor struct {
	current   float64
	direction Direction
	speed     float64
	end       float64
	frameStep float64
	running   bool
}

// NewCursor создаёт остановленный курсор в 0 с границами [0, end]
func NewCursor(end float64) *Cursor {
	c := &Cursor{direction: Forward, speed: 1, frameStep: DefaultFrameStep}
	c.SetEnd(end)
	return c
}

func (c *Cursor) Current() float64     { return c.current }
func (c *Cursor) Direction() Direction { return c.direction }
func (c *Cursor) Speed() float64       { return c.speed }
func (c *Cursor) End() float64         { return c.end }
func (c *Cursor) Running() bool        { return c.running }

// Tick сдвигает курсор на dt/speed по направлению.
// Достигнув границы, курсор останавливается. Возвращает, идёт ли воспроизведение.
func (c *Cursor) Tick(dt float64) bool {
	c.advance(float64(c.direction) * dt / c.speed)
	return c.running
}

// Step: одиночный сдвиг на delta (со знаком) независимо от состояния воспроизведения
func (c *Cursor) Step(delta float64) {
	c.advance(delta / c.speed)
}

// StepForward сдвигает курсор на один кадр вперёд
func (c *Cursor) StepForward() { c.Step(c.frameStep) }

// StepBackward сдвигает курсор на один кадр назад
func (c *Cursor) StepBackward() { c.Step(-c.frameStep) }

func (c *Cursor) advance(delta float64) {
	next := c.current + delta
	switch {
	case math.IsNaN(next):
		return
	case next >= c.end && delta > 0:
		c.current = c.end
		c.running = false
	case next <= 0 && delta < 0:
		c.current = 0
		c.running = false
	default:
		c.current = clamp(next, 0, c.end)
	}
}

// Play задаёт направление и запускает воспроизведение
func (c *Cursor) Play(dir Direction) {
	if dir != Backward {
		dir = Forward
	}
	c.direction = dir
	c.running = true
}

// Pause останавливает воспроизведение, сохраняя позицию
func (c *Cursor) Pause() { c.running = false }

// Toggle переключает play/pause в текущем направлении
func (c *Cursor) Toggle() {
	if c.running {
		c.Pause()
		return
	}
	c.Play(c.direction)
}

// Stop останавливает воспроизведение и возвращает курсор в 0
func (c *Cursor) Stop() {
	c.running = false
	c.current = 0
}

// Seek ставит курсор в t (с ограничением границами), не запуская воспроизведение
func (c *Cursor) Seek(t float64) {
	if math.IsNaN(t) {
		return
	}
	c.current = clamp(t, 0, c.end)
}

// SetSpeed задаёт делитель скорости (2 означает вдвое медленнее)
func (c *Cursor) SetSpeed(divisor float64) error {
	if !(divisor > 0) || math.IsInf(divisor, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, divisor)
	}
	c.speed = divisor
	return nil
}

// SetFrameStep задаёт шаг StepForward/StepBackward
func (c *Cursor) SetFrameStep(step float64) {
	if step > 0 {
		c.frameStep = step
	}
}

// SetEnd задаёт верхнюю границу; текущая позиция прижимается к новым границам
func (c *Cursor) SetEnd(end float64) {
	if !(end > 0) || math.IsInf(end, 0) {
		end = 0
	}
	c.end = end
	c.current = clamp(c.current, 0, end)
}

// Reset останавливает курсор в 0 с новой верхней границей
func (c *Cursor) Reset(end float64) {
	c.running = false
	c.current = 0
	c.SetEnd(end)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
