package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/world"
	"github.com/annel0/oreforged/internal/world/block"
)

func testRecord(id string, created time.Time) GenerationRecord {
	stats := world.GenerationStats{
		Ores:           map[block.ID]int{block.Coal: 3},
		GuaranteedOres: map[block.ID]int{},
		UnfilledOres:   map[block.ID]int{},
		Trees:          2,
	}
	return GenerationRecord{
		ID:         id,
		Seed:       12345,
		Config:     world.DefaultConfig(),
		ChunkCount: 25,
		Stats:      stats,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func testChunk(x, z int) protocol.SerializedChunk {
	blocks := make([]int, 2*2*2)
	for i := range blocks {
		blocks[i] = (i + x + z + 16) % 14
	}
	return protocol.SerializedChunk{ChunkX: x, ChunkZ: z, Size: 2, Height: 2, Blocks: blocks}
}

func newTestChunkStore(t *testing.T) *ChunkStore {
	t.Helper()
	serializer, err := protocol.NewChunkSerializer()
	if err != nil {
		t.Fatalf("Не удалось создать сериализатор: %v", err)
	}
	t.Cleanup(func() { serializer.Close() })

	store, err := NewChunkStore("", serializer)
	if err != nil {
		t.Fatalf("Не удалось открыть хранилище: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestMemoryGenerationRepo тестирует in-memory репозиторий поколений
func TestMemoryGenerationRepo(t *testing.T) {
	repo := NewMemoryGenerationRepo()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		rec := testRecord("gen-a", base)
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}

		got, found, err := repo.Load(ctx, "gen-a")
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		if !found {
			t.Fatal("Поколение не найдено")
		}
		if got.Seed != rec.Seed || got.ChunkCount != rec.ChunkCount || got.Stats.Ores[block.Coal] != 3 {
			t.Errorf("Неверная запись: %+v", got)
		}
	})

	t.Run("Load Unknown", func(t *testing.T) {
		_, found, err := repo.Load(ctx, "missing")
		if err != nil || found {
			t.Errorf("Ожидалось отсутствие записи, found=%v err=%v", found, err)
		}
	})

	t.Run("Invalid Record", func(t *testing.T) {
		err := repo.Save(ctx, GenerationRecord{Config: world.DefaultConfig()})
		if !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Ожидалась ErrInvalidRecord, получено %v", err)
		}
		bad := testRecord("gen-bad", base)
		bad.Config.Size = 0
		if err := repo.Save(ctx, bad); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Ожидалась ErrInvalidRecord для size=0, получено %v", err)
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		if err := repo.Save(ctx, testRecord("gen-b", base.Add(time.Minute))); err != nil {
			t.Fatal(err)
		}
		if err := repo.Save(ctx, testRecord("gen-c", base.Add(2*time.Minute))); err != nil {
			t.Fatal(err)
		}

		list, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("Ошибка List: %v", err)
		}
		if len(list) != 2 || list[0].ID != "gen-c" || list[1].ID != "gen-b" {
			t.Errorf("Неверный порядок: %+v", list)
		}

		all, _ := repo.List(ctx, 0)
		if len(all) != 3 {
			t.Errorf("Ожидалось 3 поколения, получено %d", len(all))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "gen-a"); err != nil {
			t.Fatal(err)
		}
		if repo.Count() != 2 {
			t.Errorf("Ожидалось 2 поколения после удаления, получено %d", repo.Count())
		}
		if err := repo.Delete(ctx, "gen-a"); err != nil {
			t.Errorf("Повторное удаление не должно быть ошибкой: %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := repo.Save(cctx, testRecord("gen-x", base)); !errors.Is(err, context.Canceled) {
			t.Errorf("Ожидалась context.Canceled, получено %v", err)
		}
	})
}

func TestChunkStoreRoundTrip(t *testing.T) {
	store := newTestChunkStore(t)

	chunks := []protocol.SerializedChunk{testChunk(1, 0), testChunk(-1, 2), testChunk(-1, -3), testChunk(10, 0)}
	if err := store.SaveChunks("gen-1", chunks); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	if err := store.SaveChunks("gen-2", []protocol.SerializedChunk{testChunk(0, 0)}); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	loaded, err := store.LoadChunks("gen-1")
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("Ожидалось 4 чанка, получено %d", len(loaded))
	}

	// Числовой порядок (X, Z), а не строковый
	expected := [][2]int{{-1, -3}, {-1, 2}, {1, 0}, {10, 0}}
	for i, pos := range expected {
		if loaded[i].ChunkX != pos[0] || loaded[i].ChunkZ != pos[1] {
			t.Errorf("Позиция %d: ожидался чанк %v, получен (%d,%d)", i, pos, loaded[i].ChunkX, loaded[i].ChunkZ)
		}
	}

	one, ok, err := store.LoadChunk("gen-1", -1, 2)
	if err != nil || !ok {
		t.Fatalf("Чанк (-1,2) не найден: ok=%v err=%v", ok, err)
	}
	want := testChunk(-1, 2)
	for i := range want.Blocks {
		if one.Blocks[i] != want.Blocks[i] {
			t.Fatalf("Блок %d: ожидалось %d, получено %d", i, want.Blocks[i], one.Blocks[i])
		}
	}

	if _, ok, err := store.LoadChunk("gen-1", 5, 5); ok || err != nil {
		t.Errorf("Ожидалось отсутствие чанка (5,5): ok=%v err=%v", ok, err)
	}
}

func TestChunkStoreDeleteGeneration(t *testing.T) {
	store := newTestChunkStore(t)

	if err := store.SaveChunks("gen-1", []protocol.SerializedChunk{testChunk(0, 0), testChunk(0, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChunks("gen-2", []protocol.SerializedChunk{testChunk(0, 0)}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteGeneration("gen-1"); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}

	left, err := store.LoadChunks("gen-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("Чанки gen-1 должны быть удалены, осталось %d", len(left))
	}

	other, err := store.LoadChunks("gen-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 {
		t.Errorf("Чанки gen-2 не должны пострадать, найдено %d", len(other))
	}
}

func TestChunkStoreClosed(t *testing.T) {
	store := newTestChunkStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChunks("gen", []protocol.SerializedChunk{testChunk(0, 0)}); err == nil {
		t.Error("Ожидалась ошибка записи в закрытое хранилище")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Повторное закрытие не должно быть ошибкой: %v", err)
	}
}

func TestArchiveRecordAndAppend(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(NewMemoryGenerationRepo(), newTestChunkStore(t))

	rec := testRecord("gen-1", time.Time{})
	rec.ChunkCount = 1
	if err := archive.Record(ctx, rec, []protocol.SerializedChunk{testChunk(0, 0)}); err != nil {
		t.Fatalf("Ошибка Record: %v", err)
	}

	got, err := archive.Get(ctx, "gen-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Время создания должно проставляться архивом")
	}

	stats := rec.Stats
	stats.Trees = 7
	if err := archive.Append(ctx, "gen-1", 3, stats, []protocol.SerializedChunk{testChunk(1, 0), testChunk(0, 1)}); err != nil {
		t.Fatalf("Ошибка Append: %v", err)
	}

	got, _ = archive.Get(ctx, "gen-1")
	if got.ChunkCount != 3 || got.Stats.Trees != 7 {
		t.Errorf("Сводка не обновлена: %+v", got)
	}

	chunks, err := archive.Chunks(ctx, "gen-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Errorf("Ожидалось 3 чанка, получено %d", len(chunks))
	}

	if err := archive.Append(ctx, "missing", 1, stats, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound, получено %v", err)
	}

	if err := archive.Delete(ctx, "gen-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Chunks(ctx, "gen-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ErrNotFound после удаления, получено %v", err)
	}
}

func TestArchiveWithoutChunkStore(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(NewMemoryGenerationRepo(), nil)

	if archive.StoresChunks() {
		t.Error("Архив без ChunkStore не должен хранить чанки")
	}
	if err := archive.Record(ctx, testRecord("gen-1", time.Now()), []protocol.SerializedChunk{testChunk(0, 0)}); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Chunks(ctx, "gen-1"); !errors.Is(err, ErrChunksNotStored) {
		t.Errorf("Ожидалась ErrChunksNotStored, получено %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Errorf("Ошибка закрытия: %v", err)
	}
}
