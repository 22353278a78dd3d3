package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// PayloadCache кеширует закодированные ответы с чанками.
// Ключ включает ID поколения и число чанков, поэтому после регенерации
// или догрузки старые записи просто перестают запрашиваться и истекают по TTL.
//
// Использование:
//
//	cache := NewMemoryCache(time.Minute)
//	data, err := cache.Get(ctx, "key")
//	err = cache.Set(ctx, "key", data, 30*time.Second)
type PayloadCache interface {
	// Get получает значение по ключу из кеша.
	// Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с указанным TTL.
	// TTL = 0 означает TTL по умолчанию.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ из кеша.
	Delete(ctx context.Context, key string) error

	// Close закрывает соединение с кешем.
	Close() error

	// GetMetrics возвращает метрики кеша.
	GetMetrics() CacheMetrics
}

// CacheMetrics содержит метрики попаданий кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
}

// ErrCacheMiss ключ отсутствует или истёк
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// counters общие счётчики попаданий для реализаций кеша
type counters struct {
	backend string
	hits    int64
	misses  int64
}

func (c *counters) hit() {
	atomic.AddInt64(&c.hits, 1)
	cacheRequests.WithLabelValues(c.backend, "hit").Inc()
}

func (c *counters) miss() {
	atomic.AddInt64(&c.misses, 1)
	cacheRequests.WithLabelValues(c.backend, "miss").Inc()
}

func (c *counters) snapshot() CacheMetrics {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	m := CacheMetrics{
		TotalRequests: hits + misses,
		CacheHits:     hits,
		CacheMisses:   misses,
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(hits) / float64(m.TotalRequests)
	}
	return m
}
