package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без истечения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "worldgen:",
	}
}

// RedisGenerationRepo хранит записи поколений в Redis.
// Запись лежит JSON-строкой, порядок поколений держится в sorted set.
type RedisGenerationRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisGenerationRepo создаёт новый Redis репозиторий поколений
func NewRedisGenerationRepo(config *RedisConfig) (*RedisGenerationRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis репозиторий поколений: %s", config.Addr)
	return &RedisGenerationRepo{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisGenerationRepo) recordKey(id string) string {
	return r.keyPrefix + "gen:" + id
}

func (r *RedisGenerationRepo) indexKey() string {
	return r.keyPrefix + "gens"
}

// Save сохраняет запись и обновляет индекс за одну транзакцию
func (r *RedisGenerationRepo) Save(ctx context.Context, rec GenerationRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordKey(rec.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), &redis.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save generation %s: %w", rec.ID, err)
	}
	return nil
}

// Load загружает запись поколения
func (r *RedisGenerationRepo) Load(ctx context.Context, id string) (GenerationRecord, bool, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return GenerationRecord{}, false, nil
	}
	if err != nil {
		return GenerationRecord{}, false, fmt.Errorf("failed to load generation %s: %w", id, err)
	}

	var rec GenerationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return GenerationRecord{}, false, fmt.Errorf("failed to unmarshal generation %s: %w", id, err)
	}
	return rec, true, nil
}

// List возвращает последние поколения. Истёкшие по TTL записи вычищаются из индекса.
func (r *RedisGenerationRepo) List(ctx context.Context, limit int) ([]GenerationRecord, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, int64(normalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read generation index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read generations: %w", err)
	}

	records := make([]GenerationRecord, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec GenerationRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			logging.Warn("Не удалось очистить индекс поколений: %v", err)
		}
	}

	sortNewestFirst(records)
	return records, nil
}

// Delete удаляет запись и её место в индексе
func (r *RedisGenerationRepo) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.recordKey(id))
	pipe.ZRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete generation %s: %w", id, err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisGenerationRepo) Close() error {
	return r.client.Close()
}
