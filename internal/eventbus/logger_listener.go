package eventbus

import (
	"context"

	"github.com/annel0/oreforged/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Debug("[EventBus] %s %s src=%s gen=%s size=%dB", ev.ID, ev.EventType, ev.Source, ev.CorrelationID, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
