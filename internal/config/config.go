package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/annel0/oreforged/internal/world"
	"gopkg.in/yaml.v3"
)

// ErrInvalidWorld возвращается, если параметры мира не пройдут в генератор
var ErrInvalidWorld = errors.New("invalid world config")

// Config корневая структура конфигурации сервиса генерации.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldSection    `yaml:"world"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

// WorldSection параметры мира, с которыми сервис стартует
type WorldSection struct {
	Seed            uint32  `yaml:"seed"`
	Size            int     `yaml:"size"`
	Height          int     `yaml:"height"`
	OreMult         float64 `yaml:"ore_mult"`
	TreeMult        float64 `yaml:"tree_mult"`
	IslandFactor    float64 `yaml:"island_factor"`
	LoadRadius      int     `yaml:"load_radius"`
	NegativePadding int     `yaml:"negative_padding"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Бэкенды архива поколений
const (
	StorageMemory = "memory"
	StorageMaria  = "mariadb"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

// StorageConfig архив поколений: метаданные в выбранном бэкенде,
// чанки в BadgerDB (chunk_dir пустой - чанки не сохраняются)
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	MariaDSN  string `yaml:"maria_dsn"`
	RedisAddr string `yaml:"redis_addr"`
	MongoURI  string `yaml:"mongo_uri"`
	ChunkDir  string `yaml:"chunk_dir"`
}

// CacheConfig кеш закодированных снимков: пустой redis_addr - кеш в памяти
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldSection{
			Seed:            world.DefaultSeed,
			Size:            world.DefaultChunkSize,
			Height:          world.DefaultChunkHeight,
			OreMult:         world.DefaultOreMult,
			TreeMult:        world.DefaultTreeMult,
			IslandFactor:    world.DefaultIslandFactor,
			LoadRadius:      2,
			NegativePadding: 1,
		},
		EventBus: EventBusConfig{
			Stream:    "WORLDGEN",
			Retention: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "worldgen",
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "WORLDGEN_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV WORLDGEN_CONFIG; без файла возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("WORLDGEN_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate отклоняет параметры мира, которые генератор не принимает,
// и неизвестный бэкенд архива
func (c *Config) Validate() error {
	if err := ValidateWorld(c.World.ToWorldConfig()); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "", StorageMemory, StorageMaria, StorageRedis, StorageMongo:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ValidateWorld проверяет конфигурацию мира перед передачей в генератор
func ValidateWorld(wc world.WorldConfig) error {
	switch {
	case wc.Size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidWorld, wc.Size)
	case wc.Height <= 0:
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidWorld, wc.Height)
	case wc.OreMult < 0 || wc.TreeMult < 0:
		return fmt.Errorf("%w: multipliers must not be negative", ErrInvalidWorld)
	case wc.IslandFactor <= 0:
		return fmt.Errorf("%w: island_factor must be positive, got %g", ErrInvalidWorld, wc.IslandFactor)
	}
	return nil
}

// ToWorldConfig преобразует секцию в конфигурацию генератора
func (w WorldSection) ToWorldConfig() world.WorldConfig {
	return world.WorldConfig{
		Size:         w.Size,
		Height:       w.Height,
		OreMult:      w.OreMult,
		TreeMult:     w.TreeMult,
		IslandFactor: w.IslandFactor,
	}
}
