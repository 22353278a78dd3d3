package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/oreforged/internal/config"
	"github.com/annel0/oreforged/internal/eventbus"
	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/observability"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/storage"
	"github.com/annel0/oreforged/internal/world"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventSource имя источника событий движка
const EventSource = "worldgen-engine"

var (
	// ErrNotReady возвращается, пока не завершена первая регенерация
	ErrNotReady = errors.New("world is not ready")
	// ErrRegenerationInProgress возвращается при попытке запустить вторую регенерацию
	ErrRegenerationInProgress = errors.New("regeneration already in progress")
)

// State состояние мира
type State string

const (
	StateIdle         State = "idle"
	StateRegenerating State = "regenerating"
	StateReady        State = "ready"
)

// Archiver сохраняет завершённые поколения. Ошибки архива логируются
// и не влияют на состояние мира.
type Archiver interface {
	Record(ctx context.Context, rec storage.GenerationRecord, chunks []protocol.SerializedChunk) error
	Append(ctx context.Context, genID string, chunkCount int, stats world.GenerationStats, added []protocol.SerializedChunk) error
}

// Options параметры загрузки окрестности после регенерации
type Options struct {
	LoadRadius      int
	NegativePadding int
	Archive         Archiver // nil - поколения не сохраняются
}

// Status сводка текущего поколения мира
type Status struct {
	GenerationID string                `json:"generationId"`
	Seed         uint32                `json:"seed"`
	Config       world.WorldConfig     `json:"config"`
	State        State                 `json:"state"`
	ChunkCount   int                   `json:"chunkCount"`
	Stats        world.GenerationStats `json:"stats"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// Engine единственный владелец World. Мутации мира выполняются под worldMu
// одним исполнителем, читатели получают только сериализованные копии.
type Engine struct {
	worldMu sync.Mutex
	world   *world.World

	mu       sync.RWMutex
	state    State
	status   Status
	snapshot []protocol.SerializedChunk
	index    map[world.ChunkPos]int

	bus    eventbus.EventBus
	opts   Options
	logger *logging.Logger
	wg     sync.WaitGroup
}

// New создаёт движок. bus может быть nil: тогда события не публикуются.
func New(opts Options, bus eventbus.EventBus) *Engine {
	if opts.LoadRadius < 0 {
		opts.LoadRadius = 0
	}
	return &Engine{
		world:  world.NewWorld(world.DefaultSeed),
		state:  StateIdle,
		status: Status{State: StateIdle, Config: world.DefaultConfig(), Seed: world.DefaultSeed},
		index:  make(map[world.ChunkPos]int),
		bus:    bus,
		opts:   opts,
		logger: logging.GetWorldgenLogger(),
	}
}

// Status возвращает сводку текущего поколения
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Snapshot возвращает копию списка сериализованных чанков, упорядоченную по (X, Z)
func (e *Engine) Snapshot() ([]protocol.SerializedChunk, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return nil, fmt.Errorf("%w: state %s", ErrNotReady, e.state)
	}
	out := make([]protocol.SerializedChunk, len(e.snapshot))
	copy(out, e.snapshot)
	return out, nil
}

// Current возвращает ID поколения вместе со снимком, прочитанные атомарно
func (e *Engine) Current() (string, []protocol.SerializedChunk, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return "", nil, fmt.Errorf("%w: state %s", ErrNotReady, e.state)
	}
	out := make([]protocol.SerializedChunk, len(e.snapshot))
	copy(out, e.snapshot)
	return e.status.GenerationID, out, nil
}

// Chunk возвращает сериализованный чанк из снимка
func (e *Engine) Chunk(chunkX, chunkZ int) (protocol.SerializedChunk, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return protocol.SerializedChunk{}, false, fmt.Errorf("%w: state %s", ErrNotReady, e.state)
	}
	i, ok := e.index[world.ChunkPos{X: chunkX, Z: chunkZ}]
	if !ok {
		return protocol.SerializedChunk{}, false, nil
	}
	return e.snapshot[i], true, nil
}

// begin переводит движок в состояние регенерации и выдаёт ID поколения
func (e *Engine) begin(seed uint32, cfg world.WorldConfig) (string, error) {
	if err := config.ValidateWorld(cfg); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRegenerating {
		return "", ErrRegenerationInProgress
	}

	e.state = StateRegenerating
	e.status = Status{
		GenerationID: uuid.NewString(),
		Seed:         seed,
		Config:       cfg,
		State:        StateRegenerating,
		UpdatedAt:    time.Now().UTC(),
	}
	return e.status.GenerationID, nil
}

// Regenerate синхронно пересоздаёт мир: очистка, загрузка окрестности (0,0),
// сериализация и публикация каждого чанка. Возвращает ID поколения.
func (e *Engine) Regenerate(ctx context.Context, seed uint32, cfg world.WorldConfig) (string, error) {
	genID, err := e.begin(seed, cfg)
	if err != nil {
		regenerationsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	e.run(ctx, genID, seed, cfg)
	return genID, nil
}

// RegenerateAsync запускает регенерацию в фоновой горутине.
// Состояние станет ready только после завершения всей последовательности.
func (e *Engine) RegenerateAsync(ctx context.Context, seed uint32, cfg world.WorldConfig) (string, error) {
	genID, err := e.begin(seed, cfg)
	if err != nil {
		regenerationsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}

	// Регенерация не отменяется вместе с HTTP-запросом
	bg := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(bg, genID, seed, cfg)
	}()
	return genID, nil
}

// Wait дожидается завершения фоновых регенераций
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, genID string, seed uint32, cfg world.WorldConfig) {
	ctx, span := observability.Tracer().Start(ctx, "Regenerate")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.id", genID),
		attribute.Int64("world.seed", int64(seed)),
		attribute.Int("world.size", cfg.Size),
		attribute.Int("world.height", cfg.Height),
	)

	start := time.Now()
	e.logger.Info("Регенерация %s: seed=%d size=%d height=%d ore=%.2f tree=%.2f island=%.2f",
		genID, seed, cfg.Size, cfg.Height, cfg.OreMult, cfg.TreeMult, cfg.IslandFactor)

	e.publish(ctx, genID, eventbus.TypeClearChunks, eventbus.PriorityUrgent, nil)

	// worldMu удерживается до замены снимка
	e.worldMu.Lock()
	e.world.Regenerate(seed, cfg)
	e.world.SetNegativePadding(e.opts.NegativePadding)
	e.world.LoadChunksAroundPosition(0, 0, e.opts.LoadRadius)
	chunks := e.serializeWorld()
	stats := e.world.Stats()

	for _, sc := range chunks {
		e.publish(ctx, genID, eventbus.TypeChunkData, eventbus.PriorityHigh, sc)
	}

	// Поколение попадает в архив до перехода в ready
	if e.opts.Archive != nil {
		rec := storage.GenerationRecord{
			ID:         genID,
			Seed:       seed,
			Config:     cfg,
			ChunkCount: len(chunks),
			Stats:      stats,
		}
		if err := e.opts.Archive.Record(ctx, rec, chunks); err != nil {
			e.logger.Warn("Не удалось сохранить поколение %s: %v", genID, err)
		}
	}

	e.mu.Lock()
	e.swapSnapshot(chunks)
	e.state = StateReady
	e.status.State = StateReady
	e.status.ChunkCount = len(chunks)
	e.status.Stats = stats
	e.status.UpdatedAt = time.Now().UTC()
	status := e.status
	e.mu.Unlock()
	e.worldMu.Unlock()

	e.publish(ctx, genID, eventbus.TypeWorldRegenerated, eventbus.PriorityHigh, protocol.WorldStatus{
		GenerationID: genID,
		Seed:         seed,
		State:        string(StateReady),
		ChunkCount:   status.ChunkCount,
	})

	regenerationsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("world.chunks", len(chunks)))
	e.logger.Info("Регенерация %s завершена: %d чанков за %s", genID, len(chunks), time.Since(start))
}

// LoadChunks догружает окрестность вокруг чанка и возвращает только новые чанки.
func (e *Engine) LoadChunks(ctx context.Context, centerX, centerZ, radius int) ([]protocol.SerializedChunk, error) {
	ctx, span := observability.Tracer().Start(ctx, "LoadChunks")
	defer span.End()
	span.SetAttributes(
		attribute.Int("chunk.x", centerX),
		attribute.Int("chunk.z", centerZ),
		attribute.Int("radius", radius),
	)

	// Снимок и архив обновляются под worldMu в порядке изменений мира
	e.worldMu.Lock()
	defer e.worldMu.Unlock()

	e.mu.RLock()
	state, genID := e.state, e.status.GenerationID
	known := make(map[world.ChunkPos]bool, len(e.index))
	for pos := range e.index {
		known[pos] = true
	}
	e.mu.RUnlock()
	switch state {
	case StateRegenerating:
		span.SetStatus(codes.Error, ErrRegenerationInProgress.Error())
		return nil, ErrRegenerationInProgress
	case StateIdle:
		span.SetStatus(codes.Error, ErrNotReady.Error())
		return nil, ErrNotReady
	}

	e.world.LoadChunksAroundPosition(centerX, centerZ, radius)
	chunks := e.serializeWorld()
	stats := e.world.Stats()

	var added []protocol.SerializedChunk
	for _, sc := range chunks {
		if !known[world.ChunkPos{X: sc.ChunkX, Z: sc.ChunkZ}] {
			added = append(added, sc)
		}
	}

	e.mu.Lock()
	if e.status.GenerationID != genID {
		// Регенерация запрошена во время загрузки; run ждёт worldMu и пересоздаст мир
		e.mu.Unlock()
		span.SetStatus(codes.Error, ErrRegenerationInProgress.Error())
		return nil, ErrRegenerationInProgress
	}
	e.swapSnapshot(chunks)
	e.status.ChunkCount = len(chunks)
	e.status.Stats = stats
	e.status.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	for _, sc := range added {
		e.publish(ctx, genID, eventbus.TypeChunkData, eventbus.PriorityHigh, sc)
	}
	if e.opts.Archive != nil && len(added) > 0 {
		if err := e.opts.Archive.Append(ctx, genID, len(chunks), stats, added); err != nil {
			e.logger.Warn("Не удалось дописать чанки поколения %s: %v", genID, err)
		}
	}
	span.SetAttributes(attribute.Int("chunks.added", len(added)))
	return added, nil
}

// serializeWorld вызывается под worldMu
func (e *Engine) serializeWorld() []protocol.SerializedChunk {
	loaded := e.world.GetLoadedChunks()
	out := make([]protocol.SerializedChunk, 0, len(loaded))
	for _, c := range loaded {
		out = append(out, c.Serialize())
	}
	return out
}

// swapSnapshot вызывается под mu
func (e *Engine) swapSnapshot(chunks []protocol.SerializedChunk) {
	e.snapshot = chunks
	e.index = make(map[world.ChunkPos]int, len(chunks))
	for i, sc := range chunks {
		e.index[world.ChunkPos{X: sc.ChunkX, Z: sc.ChunkZ}] = i
	}
	loadedChunks.Set(float64(len(chunks)))
}

func (e *Engine) publish(ctx context.Context, genID, eventType string, priority int, payload interface{}) {
	if e.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, EventSource, payload)
	if err != nil {
		e.logger.Error("Не удалось создать событие %s: %v", eventType, err)
		return
	}
	ev.CorrelationID = genID
	ev.Priority = priority
	if err := e.bus.Publish(ctx, ev); err != nil {
		e.logger.Warn("Не удалось опубликовать %s: %v", eventType, err)
	}
}
