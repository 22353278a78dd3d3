package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Envelope(nil), c.events...)
}

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope(TypeChunkData, "test", map[string]int{"chunkX": 3})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeChunkData, ev.EventType)
	assert.Equal(t, 1, ev.Version)
	assert.JSONEq(t, `{"chunkX":3}`, string(ev.Payload))

	other, err := NewEnvelope(TypeClearChunks, "test", nil)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ID, other.ID)
	assert.Empty(t, other.Payload)
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		ev, err := NewEnvelope(TypeChunkData, "test", i)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	require.Eventually(t, func() bool { return len(c.snapshot()) == 50 }, time.Second, 5*time.Millisecond)
	for i, ev := range c.snapshot() {
		var n int
		require.NoError(t, json.Unmarshal(ev.Payload, &n))
		assert.Equal(t, i, n, "события должны приходить в порядке публикации")
	}
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var clears, all collector
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeClearChunks}}, clears.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)

	for _, typ := range []string{TypeClearChunks, TypeChunkData, TypeWorldRegenerated} {
		ev, err := NewEnvelope(typ, "engine", nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	require.Eventually(t, func() bool { return len(all.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(clears.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, TypeClearChunks, clears.snapshot()[0].EventType)

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope(TypeChunkData, "test", nil)
	require.NoError(t, bus.Publish(context.Background(), ev))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	ev, _ := NewEnvelope(TypeChunkData, "test", nil)
	assert.Error(t, bus.Publish(context.Background(), ev))

	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.Error(t, err)
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	for i := 0; i < 3; i++ {
		ev, _ := NewEnvelope(TypeChunkData, "test", nil)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	prev := me.collect(Stats{})
	assert.Equal(t, 3.0, testutil.ToFloat64(me.published))

	me.collect(prev)
	assert.Equal(t, 3.0, testutil.ToFloat64(me.published), "повторный опрос без новых событий не меняет счётчик")
}
