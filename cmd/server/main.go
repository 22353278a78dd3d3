package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/oreforged/internal/api"
	"github.com/annel0/oreforged/internal/cache"
	"github.com/annel0/oreforged/internal/config"
	"github.com/annel0/oreforged/internal/engine"
	"github.com/annel0/oreforged/internal/eventbus"
	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/observability"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: $WORLDGEN_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("main"); err != nil {
		log.Fatalf("Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() {
		if err := logging.GetLoggerManager().CloseAll(); err != nil {
			log.Printf("Ошибка закрытия логов: %v", err)
		}
	}()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logging.Warn("%v, используется INFO", err)
	}
	logging.SetDefaultLevel(level)

	logging.Info("Запуск сервиса генерации мира...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Error("Ошибка инициализации OpenTelemetry: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus := newEventBus(cfg.EventBus)
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("Не удалось запустить LoggingListener: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, nil)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	serializer, err := protocol.NewChunkSerializer()
	if err != nil {
		logging.Error("Ошибка создания сериализатора: %v", err)
		os.Exit(1)
	}
	defer serializer.Close()

	// === ХРАНИЛИЩЕ ===
	archive, err := newArchive(cfg.Storage, serializer)
	if err != nil {
		logging.Error("Ошибка инициализации архива поколений: %v", err)
		os.Exit(1)
	}
	defer archive.Close()

	payloads := newPayloadCache(cfg.Cache)
	if payloads != nil {
		defer payloads.Close()
	}

	// === ДВИЖОК ===
	eng := engine.New(engine.Options{
		LoadRadius:      cfg.World.LoadRadius,
		NegativePadding: cfg.World.NegativePadding,
		Archive:         archive,
	}, bus)

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:       restPort,
		Engine:     eng,
		Bus:        bus,
		Serializer: serializer,
		Cache:      payloads,
		Archive:    archive,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Первая генерация идёт в фоне, API отвечает 503 до готовности
	if _, err := eng.RegenerateAsync(ctx, cfg.World.Seed, cfg.World.ToWorldConfig()); err != nil {
		logging.Error("Ошибка запуска генерации: %v", err)
	}

	logging.Info("Сервис запущен")
	logging.Info("   REST API: http://localhost%s/api/world", restPort)
	logging.Info("   Поток чанков: ws://localhost%s/ws/chunks", restPort)
	logging.Info("   Health check: http://localhost%s/health", restPort)

	select {
	case <-ctx.Done():
		logging.Info("Получен сигнал завершения, остановка...")
	case err := <-serverErr:
		if err != nil {
			logging.Error("REST API остановлен с ошибкой: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки REST API: %v", err)
	}
	eng.Wait()

	logging.Info("Сервис остановлен")
}

// newEventBus подключается к JetStream, если задан URL, иначе использует память процесса
func newEventBus(cfg config.EventBusConfig) eventbus.EventBus {
	logger := logging.GetServerLogger()
	if cfg.URL == "" {
		logger.Info("EventBus: in-memory")
		return eventbus.NewMemoryBus()
	}

	retention := time.Duration(cfg.Retention) * time.Hour
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, retention)
	if err != nil {
		logger.Warn("EventBus: JetStream недоступен (%v), используется in-memory", err)
		return eventbus.NewMemoryBus()
	}
	logger.Info("EventBus: JetStream %s stream=%s", cfg.URL, cfg.Stream)
	return bus
}

// newArchive открывает репозиторий поколений выбранного бэкенда и хранилище чанков
func newArchive(cfg config.StorageConfig, serializer *protocol.ChunkSerializer) (*storage.Archive, error) {
	logger := logging.GetServerLogger()
	var (
		repo storage.GenerationRepo
		err  error
	)
	switch cfg.Backend {
	case config.StorageMaria:
		repo, err = storage.NewMariaGenerationRepo(cfg.MariaDSN)
	case config.StorageRedis:
		rc := storage.DefaultRedisConfig()
		if cfg.RedisAddr != "" {
			rc.Addr = cfg.RedisAddr
		}
		repo, err = storage.NewRedisGenerationRepo(rc)
	case config.StorageMongo:
		repo, err = storage.NewMongoGenerationRepo(storage.MongoConfig{URI: cfg.MongoURI})
	default:
		repo = storage.NewMemoryGenerationRepo()
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Архив поколений: %s", cfg.Backend)

	var chunks *storage.ChunkStore
	if cfg.ChunkDir != "" {
		chunks, err = storage.NewChunkStore(cfg.ChunkDir, serializer)
		if err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("Чанки поколений сохраняются в %s", cfg.ChunkDir)
	}
	return storage.NewArchive(repo, chunks), nil
}

// newPayloadCache выбирает Redis или память; недоступный Redis не мешает запуску
func newPayloadCache(cfg config.CacheConfig) cache.PayloadCache {
	logger := logging.GetServerLogger()
	if !cfg.Enabled {
		return nil
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(ttl)
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr, DefaultTTL: ttl})
	if err != nil {
		logger.Warn("Redis кеш недоступен (%v), используется кеш в памяти", err)
		return cache.NewMemoryCache(ttl)
	}
	return rc
}
