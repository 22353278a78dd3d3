package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/annel0/oreforged/internal/protocol"
	"github.com/dgraph-io/badger/v3"
)

// ChunkStore хранит сериализованные чанки поколений в BadgerDB.
// Значения сжаты zstd, ключ имеет вид gen:<id>:chunk:<x>:<z>.
type ChunkStore struct {
	db         *badger.DB
	serializer *protocol.ChunkSerializer
	mutex      sync.RWMutex
	isReady    bool
}

// NewChunkStore открывает хранилище в dataPath/chunks.
// Пустой dataPath открывает BadgerDB в памяти.
func NewChunkStore(dataPath string, serializer *protocol.ChunkSerializer) (*ChunkStore, error) {
	var opts badger.Options
	if dataPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(dataPath, "chunks"))
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &ChunkStore{
		db:         db,
		serializer: serializer,
		isReady:    true,
	}, nil
}

func generationPrefix(genID string) []byte {
	return []byte("gen:" + genID + ":")
}

func chunkKey(genID string, chunkX, chunkZ int) []byte {
	return []byte(fmt.Sprintf("gen:%s:chunk:%d:%d", genID, chunkX, chunkZ))
}

// Close закрывает хранилище данных
func (cs *ChunkStore) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}
	cs.isReady = false
	return cs.db.Close()
}

// SaveChunks записывает чанки поколения одной пачкой, существующие перезаписываются
func (cs *ChunkStore) SaveChunks(genID string, chunks []protocol.SerializedChunk) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if len(chunks) == 0 {
		return nil
	}

	wb := cs.db.NewWriteBatch()
	defer wb.Cancel()

	for _, chunk := range chunks {
		data, err := cs.serializer.EncodeChunk(chunk, protocol.EncodingZstd)
		if err != nil {
			return fmt.Errorf("ошибка сериализации чанка (%d,%d): %w", chunk.ChunkX, chunk.ChunkZ, err)
		}
		if err := wb.Set(chunkKey(genID, chunk.ChunkX, chunk.ChunkZ), data); err != nil {
			return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает один чанк поколения; false если его нет
func (cs *ChunkStore) LoadChunk(genID string, chunkX, chunkZ int) (protocol.SerializedChunk, bool, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return protocol.SerializedChunk{}, false, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(genID, chunkX, chunkZ))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return protocol.SerializedChunk{}, false, nil
	}
	if err != nil {
		return protocol.SerializedChunk{}, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	chunk, err := cs.serializer.DecodeChunk(data, protocol.EncodingZstd)
	if err != nil {
		return protocol.SerializedChunk{}, false, err
	}
	return chunk, true, nil
}

// LoadChunks загружает все чанки поколения, упорядоченные по (X, Z)
func (cs *ChunkStore) LoadChunks(genID string) ([]protocol.SerializedChunk, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var chunks []protocol.SerializedChunk
	prefix := generationPrefix(genID)
	err := cs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			chunk, err := cs.serializer.DecodeChunk(data, protocol.EncodingZstd)
			if err != nil {
				return fmt.Errorf("чанк %s: %w", it.Item().Key(), err)
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	// Ключи упорядочены как строки, а не как числа
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].ChunkX != chunks[j].ChunkX {
			return chunks[i].ChunkX < chunks[j].ChunkX
		}
		return chunks[i].ChunkZ < chunks[j].ChunkZ
	})
	return chunks, nil
}

// DeleteGeneration удаляет все чанки поколения
func (cs *ChunkStore) DeleteGeneration(genID string) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	var keys [][]byte
	prefix := generationPrefix(genID)
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	wb := cs.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("ошибка удаления поколения %s: %w", genID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка удаления поколения %s: %w", genID, err)
	}
	return nil
}
