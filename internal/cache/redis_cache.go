package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит конфигурацию Redis кеша
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	KeyPrefix  string        `yaml:"key_prefix"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// RedisCache реализует PayloadCache поверх Redis.
// Общий кеш позволяет нескольким экземплярам API не перекодировать один и тот же снимок.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	counters
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = time.Minute
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "worldgen:payload:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis cache initialized: %s", config.Addr)
	return &RedisCache{
		client:     rdb,
		keyPrefix:  config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
		counters:   counters{backend: "redis"},
	}, nil
}

// Get получает значение по ключу из Redis
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.miss()
		return nil, ErrCacheMiss
	}
	if err != nil {
		r.miss()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	r.hit()
	return val, nil
}

// Set сохраняет значение с TTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ из Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetMetrics возвращает метрики кеша
func (r *RedisCache) GetMetrics() CacheMetrics {
	return r.snapshot()
}
