package storage

import (
	"context"
	"sync"
)

// MemoryGenerationRepo реализует GenerationRepo в памяти.
// Используется по умолчанию и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryGenerationRepo struct {
	mu   sync.RWMutex
	data map[string]GenerationRecord
}

// NewMemoryGenerationRepo создает новый репозиторий поколений в памяти
func NewMemoryGenerationRepo() *MemoryGenerationRepo {
	return &MemoryGenerationRepo{
		data: make(map[string]GenerationRecord),
	}
}

// Save сохраняет запись поколения в памяти
func (r *MemoryGenerationRepo) Save(ctx context.Context, rec GenerationRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[rec.ID] = rec
	return nil
}

// Load загружает запись поколения из памяти
func (r *MemoryGenerationRepo) Load(ctx context.Context, id string) (GenerationRecord, bool, error) {
	select {
	case <-ctx.Done():
		return GenerationRecord{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[id]
	return rec, ok, nil
}

// List возвращает последние поколения
func (r *MemoryGenerationRepo) List(ctx context.Context, limit int) ([]GenerationRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	records := make([]GenerationRecord, 0, len(r.data))
	for _, rec := range r.data {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	sortNewestFirst(records)
	if limit = normalizeLimit(limit); len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete удаляет запись поколения из памяти
func (r *MemoryGenerationRepo) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, id)
	return nil
}

// Count возвращает количество сохранённых поколений (для тестов и мониторинга)
func (r *MemoryGenerationRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает для хранилища в памяти
func (r *MemoryGenerationRepo) Close() error {
	return nil
}
