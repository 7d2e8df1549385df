package eventbus

import (
	"context"
	"time"

	"github.com/annel0/sensor-playback/internal/playback"
	"github.com/google/uuid"
)

// Типы событий плеера
const (
	EventFrames  = "frames"
	EventControl = "control"

	sourcePlayer = "player"
)

// BusSink публикует кадры и события плеера в шину.
// Кадры идут с низким приоритетом и теряются при переполнении,
// управляющие события: с высоким.
type BusSink struct {
	bus EventBus
	ctx context.Context
}

var _ playback.Sink = (*BusSink)(nil)

// NewBusSink создаёт sink; ctx ограничивает ожидание при публикации control-событий
func NewBusSink(ctx context.Context, bus EventBus) *BusSink {
	return &BusSink{bus: bus, ctx: ctx}
}

func (s *BusSink) Render(f playback.Frame) {
	s.publish(EventFrames, PriorityLow, f.LoadID, f)
}

func (s *BusSink) Control(c playback.Control) {
	s.publish(EventControl, PriorityHigh, c.LoadID, c)
}

func (s *BusSink) publish(eventType string, priority int, loadID uuid.UUID, payload any) {
	// Ошибка возможна только у закрытой шины или отменённого контекста
	_ = s.bus.Publish(s.ctx, &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        sourcePlayer,
		EventType:     eventType,
		CorrelationID: loadID.String(),
		Priority:      priority,
		Payload:       payload,
	})
}
