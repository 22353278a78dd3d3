package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий генерации мира
const (
	TypeWorldRegenerated = "world_regenerated"
	TypeClearChunks      = "clear_chunks"
	TypeChunkData        = "chunk_data"
)

// Приоритеты: события ниже PriorityHigh отбрасываются при переполнении буфера
const (
	PriorityLow    = 1
	PriorityHigh   = 5
	PriorityUrgent = 9
)

// Envelope описывает универсальный контейнер события.
type Envelope struct {
	ID            string            `json:"id"`                       // UUID события
	Timestamp     time.Time         `json:"timestamp"`                // Время создания события (UTC)
	Source        string            `json:"source"`                   // Имя сервиса-источника
	EventType     string            `json:"event_type"`               // Тип события
	Version       int               `json:"version"`                  // Версия схемы полезной нагрузки
	CorrelationID string            `json:"correlation_id,omitempty"` // ID поколения мира
	Priority      int               `json:"priority"`                 // 0=Low … 9=Critical
	Payload       json.RawMessage   `json:"payload,omitempty"`        // JSON полезной нагрузки
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope создаёт событие с новым ID и сериализованной полезной нагрузкой
func NewEnvelope(eventType, source string, payload interface{}) (*Envelope, error) {
	ev := &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  PriorityHigh,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто — все типы.
	Sources []string // Если пусто — все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// subscriberQueue размер очереди одного подписчика
const subscriberQueue = 1024

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	closed      bool
}

// subscriber получает события по порядку через собственную очередь
type subscriber struct {
	filter  Filter
	handler Handler
	queue   chan *Envelope
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMemoryBus создаёт in-memory шину. События доставляются каждому
// подписчику в порядке публикации.
func NewMemoryBus() EventBus {
	return &memoryBus{subscribers: make(map[int]*subscriber)}
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	if mb.closed {
		mb.mu.RUnlock()
		return fmt.Errorf("eventbus closed")
	}
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for _, sub := range mb.subscribers {
		if matchFilter(ev, sub.filter) {
			subs = append(subs, sub)
		}
	}
	mb.mu.RUnlock()

	var dropped uint64
	for _, sub := range subs {
		select {
		case sub.queue <- ev:
			continue
		default:
		}

		// Очередь заполнена — дропаём низкий приоритет
		if ev.Priority < PriorityHigh {
			dropped++
			continue
		}
		select {
		case sub.queue <- ev:
		case <-sub.ctx.Done():
			dropped++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mb.mu.Lock()
	mb.stats.Published++
	mb.stats.Dropped += dropped
	mb.mu.Unlock()
	return nil
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, fmt.Errorf("eventbus closed")
	}

	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		queue:   make(chan *Envelope, subscriberQueue),
		ctx:     cctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	mb.subscribers[id] = sub
	go mb.dispatchLoop(sub)

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	for _, sub := range mb.subscribers {
		s.InFlight += len(sub.queue)
	}
	return s
}

// Close отписывает всех подписчиков
func (mb *memoryBus) Close() error {
	mb.mu.Lock()
	mb.closed = true
	subs := mb.subscribers
	mb.subscribers = make(map[int]*subscriber)
	mb.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
	return nil
}

// dispatchLoop доставляет события одному подписчику.
func (mb *memoryBus) dispatchLoop(sub *subscriber) {
	defer close(sub.done)
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev := <-sub.queue:
			sub.handler(sub.ctx, ev)
			mb.mu.Lock()
			mb.stats.Consumed++
			mb.mu.Unlock()
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	sub, ok := s.bus.subscribers[s.id]
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()

	if ok {
		sub.cancel()
	}
}
