package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// subjectPrefix префикс subject'ов событий генерации
const subjectPrefix = "worldgen"

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
// url: nats://127.0.0.1:4222, stream: "WORLDGEN".
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "WORLDGEN"
	}

	nc, err := nats.Connect(url, nats.Name("worldgen"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure stream exists (subjects: worldgen.*)
	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subjectPrefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

func subjectFor(eventType string) string {
	return subjectPrefix + "." + eventType
}

// Publish сериализует Envelope в JSON и публикует в subject worldgen.<type>.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err = jb.js.Publish(subjectFor(ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт эфемерного упорядоченного потребителя, начиная с новых сообщений.
// Фильтр по источникам применяется на стороне клиента.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := subjectPrefix + ".*"
	if len(f.Types) == 1 {
		subj = subjectFor(f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			atomic.AddUint64(&jb.dropped, 1)
			return
		}
		if !matchFilter(&ev, f) {
			return
		}
		h(ctx, &ev)
		atomic.AddUint64(&jb.consumed, 1)
	}, nats.OrderedConsumer(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	sub := &jetSub{s: natSub}
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  0, // jetstream keeps its own queue
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
