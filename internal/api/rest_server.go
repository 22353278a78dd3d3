package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/annel0/oreforged/internal/cache"
	"github.com/annel0/oreforged/internal/config"
	"github.com/annel0/oreforged/internal/engine"
	"github.com/annel0/oreforged/internal/eventbus"
	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/middleware"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/storage"
	"github.com/annel0/oreforged/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// MaxLoadRadius ограничивает радиус догрузки одним запросом
const MaxLoadRadius = 8

// payloadTTL время жизни закодированного снимка в кеше
const payloadTTL = 5 * time.Minute

// RestServer представляет REST API сервер генератора
type RestServer struct {
	router     *gin.Engine
	engine     *engine.Engine
	serializer *protocol.ChunkSerializer
	cache      cache.PayloadCache
	archive    *storage.Archive
	stream     *StreamHub
	port       string
	metrics    *ServerMetrics
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string                    // порт для запуска сервера
	Engine     *engine.Engine            // движок генерации
	Bus        eventbus.EventBus         // шина для потока чанков, может быть nil
	Serializer *protocol.ChunkSerializer // кодек чанков
	Cache      cache.PayloadCache        // кеш закодированных снимков, может быть nil
	Archive    *storage.Archive          // архив поколений, может быть nil
	Registry   *prometheus.Registry      // nil - глобальный регистр
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("worldgen_api"))

	loggerMw := middleware.NewRequestLogger(nil)
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("worldgen_api", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:     router,
		engine:     cfg.Engine,
		serializer: cfg.Serializer,
		cache:      cfg.Cache,
		archive:    cfg.Archive,
		stream:     NewStreamHub(cfg.Engine, cfg.Bus),
		port:       cfg.Port,
		metrics:    NewServerMetrics(),
		logger:     logging.GetAPILogger(),
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// Router возвращает gin.Engine для встраивания и тестов
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api/world")
	{
		api.GET("", rs.handleWorldStatus)
		api.POST("/regenerate", rs.handleRegenerate)
		api.POST("/load", rs.handleLoad)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/chunks/:x/:z", rs.handleChunk)
	}

	generations := rs.router.Group("/api/generations")
	{
		generations.GET("", rs.handleGenerations)
		generations.GET("/:id", rs.handleGeneration)
		generations.GET("/:id/chunks", rs.handleGenerationChunks)
	}

	rs.router.GET("/ws/chunks", rs.stream.Handle)
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ProgressionRequest уровни прогрессии игрока
type ProgressionRequest struct {
	Energy    int `json:"energy" binding:"min=0"`
	OreLevel  int `json:"ore_level" binding:"min=0"`
	TreeLevel int `json:"tree_level" binding:"min=0"`
}

// RegenerateRequest запрос на пересоздание мира.
// Seed принимается как число или строка; нечисловой ввод даёт сид по умолчанию.
type RegenerateRequest struct {
	Seed          json.RawMessage     `json:"seed"`
	AutoRandomize bool                `json:"auto_randomize"`
	Config        *world.WorldConfig  `json:"config,omitempty"`
	Progression   *ProgressionRequest `json:"progression,omitempty"`
	Async         bool                `json:"async"`
}

// seedInput извлекает текст сида из числа или строки JSON
func (r RegenerateRequest) seedInput() string {
	var s string
	if err := json.Unmarshal(r.Seed, &s); err == nil {
		return s
	}
	return string(r.Seed)
}

// LoadRequest запрос на догрузку чанков вокруг центра
type LoadRequest struct {
	CenterX int `json:"center_x"`
	CenterZ int `json:"center_z"`
	Radius  int `json:"radius" binding:"min=0"`
}

// handleWorldStatus возвращает состояние текущего поколения
func (rs *RestServer) handleWorldStatus(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние мира",
		Data:    rs.engine.Status(),
	})
}

// handleRegenerate пересоздаёт мир синхронно или в фоне
func (rs *RestServer) handleRegenerate(c *gin.Context) {
	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}

	seed := engine.ParseSeed(req.seedInput(), req.AutoRandomize, nil)

	cfg := rs.engine.Status().Config
	switch {
	case req.Progression != nil:
		cfg = world.ConfigForProgression(req.Progression.Energy, req.Progression.OreLevel, req.Progression.TreeLevel)
	case req.Config != nil:
		cfg = *req.Config
	}

	var (
		genID string
		err   error
	)
	if req.Async {
		genID, err = rs.engine.RegenerateAsync(c.Request.Context(), seed, cfg)
	} else {
		genID, err = rs.engine.Regenerate(c.Request.Context(), seed, cfg)
	}
	if err != nil {
		rs.failErr(c, err)
		return
	}

	status := http.StatusOK
	if req.Async {
		status = http.StatusAccepted
	}
	c.JSON(status, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Регенерация %s с сидом %d", genID, seed),
		Data:    rs.engine.Status(),
	})
}

// handleLoad догружает чанки вокруг указанного чанка
func (rs *RestServer) handleLoad(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Radius > MaxLoadRadius {
		rs.fail(c, http.StatusBadRequest, fmt.Sprintf("Радиус больше %d", MaxLoadRadius))
		return
	}

	added, err := rs.engine.LoadChunks(c.Request.Context(), req.CenterX, req.CenterZ, req.Radius)
	if err != nil {
		rs.failErr(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Загружено %d новых чанков", len(added)),
		Data: gin.H{
			"added":       len(added),
			"chunk_count": rs.engine.Status().ChunkCount,
		},
	})
}

// handleChunks отдаёт все загруженные чанки в JSON или zstd.
// Закодированный снимок кешируется по ID поколения и числу чанков.
func (rs *RestServer) handleChunks(c *gin.Context) {
	encoding, err := protocol.ParseEncoding(c.Query("encoding"))
	if err != nil {
		rs.failErr(c, err)
		return
	}

	genID, chunks, err := rs.engine.Current()
	if err != nil {
		rs.failErr(c, err)
		return
	}

	key := fmt.Sprintf("chunks:%s:%d:%s", genID, len(chunks), encoding)
	data, cached := rs.cachedPayload(c, key)
	if !cached {
		data, err = rs.serializer.EncodeChunks(chunks, encoding)
		if err != nil {
			rs.failErr(c, err)
			return
		}
		rs.storePayload(c, key, data)
	}

	c.Header("X-Generation-Id", genID)
	c.Header("X-Chunk-Count", strconv.Itoa(len(chunks)))
	c.Data(http.StatusOK, encoding.ContentType(), data)
}

func (rs *RestServer) cachedPayload(c *gin.Context, key string) ([]byte, bool) {
	if rs.cache == nil {
		return nil, false
	}
	data, err := rs.cache.Get(c.Request.Context(), key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			rs.logger.Warn("Ошибка чтения кеша %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (rs *RestServer) storePayload(c *gin.Context, key string, data []byte) {
	if rs.cache == nil {
		return
	}
	if err := rs.cache.Set(c.Request.Context(), key, data, payloadTTL); err != nil {
		rs.logger.Warn("Ошибка записи кеша %s: %v", key, err)
	}
}

// handleChunk отдаёт один чанк по координатам сетки
func (rs *RestServer) handleChunk(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	z, errZ := strconv.Atoi(c.Param("z"))
	if errX != nil || errZ != nil {
		rs.fail(c, http.StatusBadRequest, "Координаты чанка должны быть целыми числами")
		return
	}

	encoding, err := protocol.ParseEncoding(c.Query("encoding"))
	if err != nil {
		rs.failErr(c, err)
		return
	}

	chunk, ok, err := rs.engine.Chunk(x, z)
	if err != nil {
		rs.failErr(c, err)
		return
	}
	if !ok {
		rs.fail(c, http.StatusNotFound, fmt.Sprintf("Чанк (%d,%d) не загружен", x, z))
		return
	}

	data, err := rs.serializer.EncodeChunk(chunk, encoding)
	if err != nil {
		rs.failErr(c, err)
		return
	}
	c.Data(http.StatusOK, encoding.ContentType(), data)
}

// handleGenerations список последних поколений из архива
func (rs *RestServer) handleGenerations(c *gin.Context) {
	if rs.archive == nil {
		rs.fail(c, http.StatusNotImplemented, "Архив поколений не настроен")
		return
	}
	limit := storage.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			rs.fail(c, http.StatusBadRequest, "limit должен быть положительным числом")
			return
		}
		limit = n
	}

	records, err := rs.archive.List(c.Request.Context(), limit)
	if err != nil {
		rs.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// handleGeneration метаданные одного поколения
func (rs *RestServer) handleGeneration(c *gin.Context) {
	if rs.archive == nil {
		rs.fail(c, http.StatusNotImplemented, "Архив поколений не настроен")
		return
	}
	rec, err := rs.archive.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		rs.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleGenerationChunks чанки архивного поколения
func (rs *RestServer) handleGenerationChunks(c *gin.Context) {
	if rs.archive == nil {
		rs.fail(c, http.StatusNotImplemented, "Архив поколений не настроен")
		return
	}
	encoding, err := protocol.ParseEncoding(c.Query("encoding"))
	if err != nil {
		rs.failErr(c, err)
		return
	}

	chunks, err := rs.archive.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		rs.failErr(c, err)
		return
	}
	data, err := rs.serializer.EncodeChunks(chunks, encoding)
	if err != nil {
		rs.failErr(c, err)
		return
	}
	c.Header("X-Chunk-Count", strconv.Itoa(len(chunks)))
	c.Data(http.StatusOK, encoding.ContentType(), data)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":     "ok",
		"time":       time.Now().Unix(),
		"uptime":     rs.metrics.GetUptime(),
		"memory_mb":  fmt.Sprintf("%.2f", rs.metrics.GetMemoryUsage()),
		"goroutines": runtime.NumGoroutine(),
		"world":      rs.engine.Status().State,
		"stream":     rs.stream.ClientCount(),
	}
	if rss, err := rs.metrics.GetRSS(); err == nil {
		health["rss_mb"] = fmt.Sprintf("%.2f", rss)
	}
	if cpuPercent, err := rs.metrics.GetCPUUsage(); err == nil {
		health["cpu_percent"] = fmt.Sprintf("%.2f", cpuPercent)
	}
	c.JSON(http.StatusOK, health)
}

func (rs *RestServer) fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// failErr отображает ошибки движка и кодека в HTTP-статусы
func (rs *RestServer) failErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, config.ErrInvalidWorld), errors.Is(err, protocol.ErrUnknownEncoding):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrRegenerationInProgress):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrChunksNotStored):
		status = http.StatusNotImplemented
	}
	_ = c.Error(err)
	rs.fail(c, status, err.Error())
}

// Start запускает REST сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Stop корректно останавливает REST сервер и закрывает поток чанков
func (rs *RestServer) Stop(ctx context.Context) error {
	rs.stream.Close()
	return rs.httpServer.Shutdown(ctx)
}
