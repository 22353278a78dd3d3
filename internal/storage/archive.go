package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/world"
)

// Archive объединяет метаданные поколений и их чанки.
// chunks может быть nil: тогда сохраняются только метаданные.
type Archive struct {
	repo   GenerationRepo
	chunks *ChunkStore
	logger *logging.Logger
}

// NewArchive создаёт архив поколений
func NewArchive(repo GenerationRepo, chunks *ChunkStore) *Archive {
	return &Archive{
		repo:   repo,
		chunks: chunks,
		logger: logging.GetComponentLogger("storage"),
	}
}

// StoresChunks сообщает, сохраняет ли архив сами чанки
func (a *Archive) StoresChunks() bool {
	return a.chunks != nil
}

// Record сохраняет новое поколение целиком
func (a *Archive) Record(ctx context.Context, rec GenerationRecord, chunks []protocol.SerializedChunk) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if a.chunks != nil {
		if err := a.chunks.SaveChunks(rec.ID, chunks); err != nil {
			return err
		}
	}
	if err := a.repo.Save(ctx, rec); err != nil {
		return err
	}
	a.logger.Debug("Поколение %s сохранено: %d чанков", rec.ID, rec.ChunkCount)
	return nil
}

// Append дописывает догруженные чанки и обновляет сводку поколения
func (a *Archive) Append(ctx context.Context, genID string, chunkCount int, stats world.GenerationStats, added []protocol.SerializedChunk) error {
	rec, ok, err := a.repo.Load(ctx, genID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, genID)
	}

	if a.chunks != nil {
		if err := a.chunks.SaveChunks(genID, added); err != nil {
			return err
		}
	}

	rec.ChunkCount = chunkCount
	rec.Stats = stats
	rec.UpdatedAt = time.Now().UTC()
	return a.repo.Save(ctx, rec)
}

// Get возвращает метаданные поколения
func (a *Archive) Get(ctx context.Context, genID string) (GenerationRecord, error) {
	rec, ok, err := a.repo.Load(ctx, genID)
	if err != nil {
		return GenerationRecord{}, err
	}
	if !ok {
		return GenerationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, genID)
	}
	return rec, nil
}

// List возвращает последние поколения
func (a *Archive) List(ctx context.Context, limit int) ([]GenerationRecord, error) {
	return a.repo.List(ctx, limit)
}

// Chunks возвращает сохранённые чанки поколения
func (a *Archive) Chunks(ctx context.Context, genID string) ([]protocol.SerializedChunk, error) {
	if a.chunks == nil {
		return nil, ErrChunksNotStored
	}
	if _, err := a.Get(ctx, genID); err != nil {
		return nil, err
	}
	return a.chunks.LoadChunks(genID)
}

// Delete удаляет поколение вместе с чанками
func (a *Archive) Delete(ctx context.Context, genID string) error {
	if a.chunks != nil {
		if err := a.chunks.DeleteGeneration(genID); err != nil {
			return err
		}
	}
	return a.repo.Delete(ctx, genID)
}

// Close закрывает репозиторий и хранилище чанков
func (a *Archive) Close() error {
	var errs []error
	if a.chunks != nil {
		errs = append(errs, a.chunks.Close())
	}
	errs = append(errs, a.repo.Close())
	return errors.Join(errs...)
}
