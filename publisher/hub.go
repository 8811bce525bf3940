package publisher

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KoTeuKa404/pymusic/log"
	"github.com/gorilla/websocket"
	"github.com/samber/mo"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message is the JSON envelope sent to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ActiveData is the payload of "active" messages.
type ActiveData struct {
	Active bool `json:"active"`
}

// StateData is the payload of "state" messages.
type StateData struct {
	Playing    bool  `json:"playing"`
	PositionMs int64 `json:"position_ms"`
}

// NotificationData is the payload of "notification" messages.
type NotificationData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Playing  bool   `json:"playing"`
	Artwork  string `json:"artwork,omitempty"`
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts state to connected websocket clients.
// A client that connects late first receives the latest message of each type.
type Hub struct {
	clients    map[*hubClient]bool
	broadcast  chan []byte
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
	count      atomic.Int32

	mu   sync.Mutex
	last map[string][]byte
}

// NewHub creates a hub and starts its event loop.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*hubClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		last:       make(map[string][]byte),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	for {
		select {
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "player shutting down"),
					time.Now().Add(2*time.Second),
				)
				close(client.send)
				delete(h.clients, client)
			}
			h.count.Store(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int32(len(h.clients)))
			for _, msg := range h.snapshot() {
				client.send <- msg
			}
			log.Debugf("hub: client connected, %d total", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Store(int32(len(h.clients)))
				log.Debugf("hub: client disconnected, %d total", len(h.clients))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.count.Store(int32(len(h.clients)))
		}
	}
}

// Close disconnects every client and stops the event loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) SetActive(active bool) {
	h.publish("active", ActiveData{Active: active})
}

func (h *Hub) PushPlaybackState(playing bool, positionMs int64) {
	h.publish("state", StateData{Playing: playing, PositionMs: positionMs})
}

func (h *Hub) UpdateNotification(title, subtitle string, playing bool, artwork mo.Option[string]) {
	h.publish("notification", NotificationData{
		Title:    title,
		Subtitle: subtitle,
		Playing:  playing,
		Artwork:  artwork.OrEmpty(),
	})
}

func (h *Hub) publish(msgType string, data any) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		log.Errorf("hub: marshal %s: %v", msgType, err)
		return
	}

	h.mu.Lock()
	h.last[msgType] = payload
	h.mu.Unlock()

	select {
	case <-h.done:
	case h.broadcast <- payload:
	default:
		// Broadcast channel full, skip this update.
	}
}

func (h *Hub) snapshot() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([][]byte, 0, len(h.last))
	for _, msgType := range []string{"active", "notification", "state"} {
		if msg, ok := h.last[msgType]; ok {
			out = append(out, msg)
		}
	}
	return out
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request and attaches the client to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("hub: upgrade failed: %v", err)
		return
	}

	client := &hubClient{hub: h, conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *hubClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
