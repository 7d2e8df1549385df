package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	frames   []Frame
	controls []ControlKind
}

func (s *recordingSink) Render(f Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *recordingSink) Control(c Control) {
	s.mu.Lock()
	s.controls = append(s.controls, c.Kind)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() ([]Frame, []ControlKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...), append([]ControlKind(nil), s.controls...)
}

func shortContainer(end float64) *recording.Container {
	return recording.NewKeyed().Set("ch", recording.NewKeyed().Set("dvs", leaf(0, end)))
}

func newTestPlayer(t *testing.T) (*Player, *recordingSink, *fakeRegistry) {
	t.Helper()
	fr := newFakeRegistry()
	sink := &recordingSink{}
	p := NewPlayer(NewDispatcher(WithRegistry(fr.reg)), sink, WithTickInterval(time.Millisecond), WithWindow(0.1))
	t.Cleanup(p.Close)
	return p, sink, fr
}

func TestPlayerPlaysToEnd(t *testing.T) {
	p, sink, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(0.05)))

	p.Play(ctx, Forward)
	p.Wait()

	assert.False(t, p.Running())
	assert.Equal(t, 0.05, p.Current())

	frames, controls := sink.snapshot()
	require.NotEmpty(t, frames)
	assert.Equal(t, ControlLoaded, controls[0])
	assert.Equal(t, ControlStopped, controls[len(controls)-1])

	for i := 1; i < len(frames); i++ {
		assert.GreaterOrEqual(t, frames[i].Time, frames[i-1].Time, "время вперёд не убывает")
	}
	assert.Equal(t, 0.05, frames[len(frames)-1].Time)
}

func TestPlayerPlaysBackward(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(10)))
	p.Seek(ctx, 0.03)

	p.Play(ctx, Backward)
	p.Wait()
	assert.Zero(t, p.Current())
}

func TestPlayerPauseKeepsPosition(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(1000)))

	p.Play(ctx, Forward)
	assert.Eventually(t, func() bool { return p.Current() > 0 }, time.Second, time.Millisecond)
	p.Pause()

	pos := p.Current()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, pos, p.Current())
	assert.False(t, p.Running())
}

func TestPlayerRestartDoesNotDuplicateTicker(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(1000)))

	for i := 0; i < 5; i++ {
		p.Play(ctx, Forward)
	}
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	require.NotNil(t, done)

	p.Pause()
	select {
	case <-done:
	default:
		t.Fatal("тикер не остановлен")
	}
}

func TestPlayerLoadStopsTicking(t *testing.T) {
	p, sink, fr := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(1000)))
	p.Play(ctx, Forward)
	assert.Eventually(t, func() bool { return p.Current() > 0 }, time.Second, time.Millisecond)

	fr.mu.Lock()
	old := fr.built[0]
	fr.mu.Unlock()

	require.NoError(t, p.Load(ctx, shortContainer(2)))
	assert.False(t, p.Running())
	assert.Zero(t, p.Current())

	old.mu.Lock()
	calls := len(old.seen)
	old.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	old.mu.Lock()
	assert.Equal(t, calls, len(old.seen), "старый экстрактор больше не вызывается")
	old.mu.Unlock()

	frames, _ := sink.snapshot()
	last := frames[len(frames)-1]
	assert.Zero(t, last.Time)
}

func TestPlayerSeekAndStep(t *testing.T) {
	p, sink, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(1)))

	p.Seek(ctx, 0.5)
	p.StepForward(ctx)
	assert.InDelta(t, 0.5+DefaultFrameStep, p.Current(), 1e-12)
	p.StepBackward(ctx)
	p.Step(ctx, -0.25)
	assert.InDelta(t, 0.25, p.Current(), 1e-12)
	assert.False(t, p.Running())

	require.NoError(t, p.SetSpeed(2))
	p.Step(ctx, 0.5)
	assert.InDelta(t, 0.5, p.Current(), 1e-12)
	assert.Error(t, p.SetSpeed(0))

	p.Stop(ctx)
	assert.Zero(t, p.Current())

	frames, _ := sink.snapshot()
	assert.Len(t, frames, 7, "load, seek, три шага, шаг после смены скорости, stop")
}

func TestPlayerToggle(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx, shortContainer(1000)))

	p.Toggle(ctx)
	assert.True(t, p.Running())
	p.Toggle(ctx)
	assert.False(t, p.Running())
}

func TestPlayerContextCancelStopsTicker(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	require.NoError(t, p.Load(context.Background(), shortContainer(1000)))

	ctx, cancel := context.WithCancel(context.Background())
	p.Play(ctx, Forward)
	cancel()
	p.Wait()

	pos := p.Current()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, pos, p.Current())
}
