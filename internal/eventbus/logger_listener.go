package eventbus

import (
	"context"

	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/annel0/sensor-playback/internal/playback"
)

// StartLoggingListener подписывается на все события и пишет их в лог шины.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetBusLogger()
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		switch p := ev.Payload.(type) {
		case playback.Frame:
			failed := 0
			for _, r := range p.Results {
				if r.Err != nil {
					failed++
				}
			}
			logger.Trace("[EventBus] %s %s load=%s t=%.3f streams=%d failed=%d", ev.ID, ev.EventType, ev.CorrelationID, p.Time, len(p.Results), failed)
		case playback.Control:
			logger.Debug("[EventBus] %s %s %s load=%s t=%.3f/%.3f dir=%s", ev.ID, ev.EventType, p.Kind, ev.CorrelationID, p.Time, p.End, p.Direction)
		default:
			logger.Debug("[EventBus] %s %s src=%s prio=%d", ev.ID, ev.EventType, ev.Source, ev.Priority)
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
