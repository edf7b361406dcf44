package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// Конфигурация WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // лента только для чтения
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// FeedMessage — сообщение ленты размещений
type FeedMessage struct {
	Type      string          `json:"type"`
	Placement world.Placement `json:"placement"`
	Time      int64           `json:"time"`
}

// feedClient — подключённый наблюдатель
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// PlacementFeed рассылает постоянные размещения подключённым websocket-клиентам.
// Publish не блокирует: медленный клиент отключается.
type PlacementFeed struct {
	mu      sync.RWMutex
	clients map[string]*feedClient
	closed  bool
}

// NewPlacementFeed создаёт пустую ленту
func NewPlacementFeed() *PlacementFeed {
	return &PlacementFeed{clients: make(map[string]*feedClient)}
}

// Publish отправляет размещение всем клиентам. Подходит для Terrain.OnPlacement.
func (f *PlacementFeed) Publish(p world.Placement) {
	data, err := json.Marshal(FeedMessage{Type: "object_placed", Placement: p, Time: time.Now().UnixMilli()})
	if err != nil {
		logging.Error("❌ Лента: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, client := range f.clients {
		select {
		case client.send <- data:
		default:
			logging.Warn("⚠️ Лента: клиент %s не успевает, отключаем", id)
			close(client.send)
			delete(f.clients, id)
		}
	}
}

// Clients возвращает число подключённых клиентов
func (f *PlacementFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close отключает всех клиентов
func (f *PlacementFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for id, client := range f.clients {
		close(client.send)
		delete(f.clients, id)
	}
}

// HandleConnection обрабатывает новое WebSocket подключение
func (f *PlacementFeed) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("⚠️ Лента: ошибка upgrade: %v", err)
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, 64),
		id:   uuid.NewString(),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.clients[client.id] = client
	f.mu.Unlock()
	logging.Info("🔌 Лента: клиент %s подключён (%s)", client.id, r.RemoteAddr)

	go f.readPump(client)
	go f.writePump(client)
}

func (f *PlacementFeed) unregister(client *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[client.id]; ok {
		close(client.send)
		delete(f.clients, client.id)
		logging.Info("🔌 Лента: клиент %s отключён", client.id)
	}
	f.mu.Unlock()
}

// readPump читает только управляющие кадры; входящие сообщения игнорируются
func (f *PlacementFeed) readPump(client *feedClient) {
	defer func() {
		f.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug("Лента: ошибка чтения %s: %v", client.id, err)
			}
			return
		}
	}
}

// writePump асинхронно отправляет сообщения клиенту
func (f *PlacementFeed) writePump(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
