// Package realtime pushes messages to the websocket connections of users.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

const (
	MessageTypeNotification = "notification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub keeps the live connections of every user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]bool // {userID: {client}}
	upgrader websocket.Upgrader
	logger   core.Logger
	closed   bool
}

var _ notification.Pusher = (*Hub)(nil)

// NewHub accepts connections from allowedOrigins ("*" allows any). Requests without Origin are always accepted.
func NewHub(allowedOrigins []string, logger core.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]map[*client]bool),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Serve upgrades the request and keeps the connection open for userID until the peer leaves.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return errors.New("hub closed")
	}
	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]bool)
	}
	h.clients[c.userID][c] = true
	metrics.WebsocketConnections.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok && conns[c] {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
		close(c.send)
		metrics.WebsocketConnections.Dec()
	}
}

// Send delivers msg to every connection of userID and returns how many got it.
// Connections too slow to keep up are dropped.
func (h *Hub) Send(userID string, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("realtime.Send", errors.Wrap(err, "encoding message"))
		return 0
	}

	h.mu.RLock()
	var sent int
	var slow []*client
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
	return sent
}

// reply queues data for c alone, unless c was unregistered meanwhile.
func (h *Hub) reply(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.userID][c] {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) Push(userID string, n notification.Notification) {
	h.Send(userID, Message{Type: MessageTypeNotification, Data: n})
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects everyone; later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := make([]*client, 0)
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}
