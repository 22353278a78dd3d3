package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/oreforged/internal/engine"
	"github.com/annel0/oreforged/internal/eventbus"
	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	clientSendSize = 512
)

// Конфигурация WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // клиент-рендерер обычно живёт на другом origin
	},
}

// streamClient подключенный получатель потока чанков
type streamClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

// offer возвращает false, если очередь клиента переполнена
func (sc *streamClient) offer(data []byte) bool {
	select {
	case <-sc.done:
		return true
	case sc.send <- data:
		return true
	default:
		return false
	}
}

// offerWait ждёт места в очереди не дольше timeout
func (sc *streamClient) offerWait(data []byte, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-sc.done:
		return true
	case sc.send <- data:
		return true
	case <-timer.C:
		return false
	}
}

// close не закрывает send: писатели могут ещё держать ссылку на канал
func (sc *streamClient) close() {
	sc.once.Do(func() {
		close(sc.done)
		sc.cancel()
	})
}

// StreamHub пересылает клиентам снимок мира и события генерации
type StreamHub struct {
	engine *engine.Engine
	bus    eventbus.EventBus
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]*streamClient
}

// NewStreamHub создаёт хаб; без шины клиенты получают только снимок
func NewStreamHub(eng *engine.Engine, bus eventbus.EventBus) *StreamHub {
	return &StreamHub{
		engine:  eng,
		bus:     bus,
		logger:  logging.GetAPILogger(),
		clients: make(map[string]*streamClient),
	}
}

// ClientCount возвращает число подключенных клиентов
func (h *StreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handle обрабатывает GET /ws/chunks
func (h *StreamHub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &streamClient{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, clientSendSize),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.logger.Info("Поток чанков: клиент %s подключен", client.id)

	// Подписка раньше снимка: дубликаты чанков безопасны, пропуски - нет
	if h.bus != nil {
		filter := eventbus.Filter{Types: []string{
			eventbus.TypeClearChunks, eventbus.TypeChunkData, eventbus.TypeWorldRegenerated,
		}}
		sub, err := h.bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
			h.forward(client, ev)
		})
		if err != nil {
			h.logger.Error("Поток чанков: подписка для %s: %v", client.id, err)
		} else {
			defer sub.Unsubscribe()
		}
	}

	go h.writePump(client)
	h.sendSnapshot(client)
	h.readPump(client)
}

// sendSnapshot отправляет состояние мира и, если он готов, все чанки.
// Снимок может быть больше очереди, поэтому чанки отправляются с ожиданием.
func (h *StreamHub) sendSnapshot(client *streamClient) {
	status := h.engine.Status()
	h.enqueue(client, protocol.MsgWorldStatus, protocol.WorldStatus{
		GenerationID: status.GenerationID,
		Seed:         status.Seed,
		State:        string(status.State),
		ChunkCount:   status.ChunkCount,
	})

	chunks, err := h.engine.Snapshot()
	if err != nil {
		return
	}
	h.enqueue(client, protocol.MsgClearChunks, nil)
	for _, sc := range chunks {
		data, err := marshalMsg(protocol.MsgChunkData, sc)
		if err != nil {
			h.logger.Error("Поток чанков: %v", err)
			continue
		}
		if !client.offerWait(data, writeWait) {
			h.logger.Warn("Поток чанков: клиент %s не принял снимок, отключаем", client.id)
			h.drop(client)
			return
		}
		logging.LogChunkData(client.id, sc.ChunkX, sc.ChunkZ, len(sc.Blocks))
	}
}

// forward превращает событие шины в сообщение клиента
func (h *StreamHub) forward(client *streamClient, ev *eventbus.Envelope) {
	msg := protocol.GameMsg{
		Type:      protocol.MsgType(ev.EventType),
		Timestamp: ev.Timestamp.UnixMilli(),
		Payload:   ev.Payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Поток чанков: сериализация %s: %v", ev.EventType, err)
		return
	}
	h.push(client, data)
}

func (h *StreamHub) enqueue(client *streamClient, msgType protocol.MsgType, payload interface{}) {
	data, err := marshalMsg(msgType, payload)
	if err != nil {
		h.logger.Error("Поток чанков: %v", err)
		return
	}
	h.push(client, data)
}

func marshalMsg(msgType protocol.MsgType, payload interface{}) ([]byte, error) {
	msg, err := protocol.NewGameMsg(msgType, payload)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", msgType, err)
	}
	return data, nil
}

// push кладёт сообщение в очередь клиента; медленный клиент отключается
func (h *StreamHub) push(client *streamClient, data []byte) {
	if !client.offer(data) {
		h.logger.Warn("Поток чанков: клиент %s не успевает, отключаем", client.id)
		h.drop(client)
	}
}

func (h *StreamHub) drop(client *streamClient) {
	h.mu.Lock()
	delete(h.clients, client.id)
	h.mu.Unlock()
	client.close()
}

// readPump читает до закрытия соединения; входящие сообщения игнорируются
func (h *StreamHub) readPump(client *streamClient) {
	defer func() {
		h.drop(client)
		client.conn.Close()
		h.logger.Info("Поток чанков: клиент %s отключен", client.id)
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Поток чанков: чтение %s: %v", client.id, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту и поддерживает соединение пингами
func (h *StreamHub) writePump(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(client)
		client.conn.Close()
	}()

	for {
		select {
		case <-client.done:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close отключает всех клиентов
func (h *StreamHub) Close() {
	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*streamClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
