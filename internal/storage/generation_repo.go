package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/annel0/oreforged/internal/world"
)

var (
	// ErrInvalidRecord возвращается при попытке сохранить неполную запись
	ErrInvalidRecord = errors.New("invalid generation record")
	// ErrNotFound поколение отсутствует в архиве
	ErrNotFound = errors.New("generation not found")
	// ErrChunksNotStored архив настроен без хранилища чанков
	ErrChunksNotStored = errors.New("chunk store is not configured")
)

// DefaultListLimit количество поколений в выдаче List по умолчанию
const DefaultListLimit = 20

// GenerationRecord метаданные одного поколения мира.
// Сами чанки хранятся отдельно в ChunkStore.
type GenerationRecord struct {
	ID         string                `json:"id"`
	Seed       uint32                `json:"seed"`
	Config     world.WorldConfig     `json:"config"`
	ChunkCount int                   `json:"chunkCount"`
	Stats      world.GenerationStats `json:"stats"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// GenerationRepo определяет интерфейс хранения метаданных поколений.
// Реализации: память, MariaDB, Redis, MongoDB.
type GenerationRepo interface {
	// Save создаёт или обновляет запись поколения
	Save(ctx context.Context, rec GenerationRecord) error

	// Load возвращает запись; false если поколение неизвестно
	Load(ctx context.Context, id string) (GenerationRecord, bool, error)

	// List возвращает последние поколения, новые первыми
	List(ctx context.Context, limit int) ([]GenerationRecord, error)

	// Delete удаляет запись (отсутствие записи не ошибка)
	Delete(ctx context.Context, id string) error

	// Close освобождает соединения
	Close() error
}

// validateRecord проверяет обязательные поля перед записью
func validateRecord(rec GenerationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if rec.Config.Size <= 0 || rec.Config.Height <= 0 {
		return fmt.Errorf("%w: size=%d height=%d", ErrInvalidRecord, rec.Config.Size, rec.Config.Height)
	}
	if rec.ChunkCount < 0 {
		return fmt.Errorf("%w: negative chunk count", ErrInvalidRecord)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// sortNewestFirst упорядочивает записи по времени создания, при равенстве по ID
func sortNewestFirst(records []GenerationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
