package playback

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorTickClampsAtEnd(t *testing.T) {
	c := NewCursor(10)
	c.Play(Forward)

	running := c.Tick(12)
	assert.False(t, running)
	assert.Equal(t, 10.0, c.Current())
	assert.False(t, c.Running())
}

func TestCursorTickBackward(t *testing.T) {
	c := NewCursor(10)
	c.Seek(3)
	c.Play(Backward)

	assert.True(t, c.Tick(1))
	assert.InDelta(t, 2.0, c.Current(), 1e-12)

	assert.False(t, c.Tick(5))
	assert.Equal(t, 0.0, c.Current())
}

func TestCursorSpeedDivisor(t *testing.T) {
	c := NewCursor(10)
	require.NoError(t, c.SetSpeed(4))
	c.Play(Forward)
	c.Tick(2)
	assert.InDelta(t, 0.5, c.Current(), 1e-12)

	assert.ErrorIs(t, c.SetSpeed(0), ErrInvalidSpeed)
	assert.ErrorIs(t, c.SetSpeed(-1), ErrInvalidSpeed)
	assert.Equal(t, 4.0, c.Speed())
}

func TestCursorPauseToggleStop(t *testing.T) {
	c := NewCursor(10)
	c.Play(Backward)
	c.Seek(5)
	c.Pause()
	assert.False(t, c.Running())
	assert.Equal(t, 5.0, c.Current(), "пауза сохраняет позицию")

	c.Toggle()
	assert.True(t, c.Running())
	assert.Equal(t, Backward, c.Direction(), "toggle сохраняет направление")
	c.Toggle()
	assert.False(t, c.Running())

	c.Play(Forward)
	c.Stop()
	assert.False(t, c.Running())
	assert.Zero(t, c.Current())
}

func TestCursorStepIgnoresRunningState(t *testing.T) {
	c := NewCursor(1)
	c.StepForward()
	assert.InDelta(t, DefaultFrameStep, c.Current(), 1e-12)
	assert.False(t, c.Running())

	c.StepBackward()
	c.StepBackward()
	assert.Zero(t, c.Current())

	c.Step(0.5)
	assert.InDelta(t, 0.5, c.Current(), 1e-12)

	c.SetFrameStep(0.1)
	c.StepForward()
	assert.InDelta(t, 0.6, c.Current(), 1e-12)
}

func TestCursorSeek(t *testing.T) {
	c := NewCursor(10)
	c.Seek(4)
	assert.Equal(t, 4.0, c.Current())
	assert.False(t, c.Running(), "seek не запускает воспроизведение")

	c.Seek(-3)
	assert.Zero(t, c.Current())
	c.Seek(42)
	assert.Equal(t, 10.0, c.Current())
}

func TestCursorSetEndClampsCurrent(t *testing.T) {
	c := NewCursor(10)
	c.Seek(8)
	c.SetEnd(5)
	assert.Equal(t, 5.0, c.Current())

	c.Reset(3)
	assert.Zero(t, c.Current())
	assert.Equal(t, 3.0, c.End())
}

func TestCursorEmptyTimeline(t *testing.T) {
	c := NewCursor(0)
	c.Play(Forward)
	assert.False(t, c.Tick(0.1))
	assert.Zero(t, c.Current())
}

// Курсор не покидает [0, end] при любой последовательности тиков
func TestCursorNeverLeavesBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		end := rng.Float64() * 20
		c := NewCursor(end)
		for i := 0; i < 100; i++ {
			switch rng.Intn(4) {
			case 0:
				c.Play(Forward)
			case 1:
				c.Play(Backward)
			case 2:
				c.Step(rng.NormFloat64())
			}
			c.Tick(rng.Float64() * 3)
			require.GreaterOrEqual(t, c.Current(), 0.0)
			require.LessOrEqual(t, c.Current(), end)
		}
	}
}
