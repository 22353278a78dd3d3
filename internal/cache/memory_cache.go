package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache реализует PayloadCache в памяти процесса.
// Истёкшие записи удаляются при чтении и при каждой записи.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
	counters
}

// NewMemoryCache создаёт кеш в памяти с TTL по умолчанию
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		counters:   counters{backend: "memory"},
	}
}

// Get получает значение по ключу
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		m.miss()
		return nil, ErrCacheMiss
	}
	m.hit()
	return entry.value, nil
}

// Set сохраняет копию значения
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{value: stored, expires: now.Add(ttl)}
	return nil
}

// Delete удаляет ключ
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len возвращает число записей, включая ещё не вычищенные истёкшие
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close очищает кеш
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// GetMetrics возвращает метрики кеша
func (m *MemoryCache) GetMetrics() CacheMetrics {
	return m.snapshot()
}
