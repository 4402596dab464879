// Package ws fans simulation tick envelopes out to websocket subscribers.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	xlogger "github.com/lotoos0/memex-sim/pkg/logger"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The simulator serves a single local UI; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected clients and pushes every tick envelope to
// all of them. A client that cannot keep up is dropped rather than allowed
// to stall the broadcast.
type Hub struct {
	logger *xlogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.serve)
}

// Broadcast sends the envelope to every connected client. Marshalling
// happens once; slow clients are disconnected.
func (h *Hub) Broadcast(env *models.TickEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal tick envelope", xlogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("websocket client too slow, dropping")
			go h.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", xlogger.Int("clients", n))

	go h.writeLoop(cl)
	go h.readLoop(cl)
	return nil
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
	_ = cl.conn.Close()
}

// readLoop drains inbound frames so pongs and close frames are processed.
// Subscribers never send meaningful payloads.
func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(cl)
	}()
	for {
		select {
		case payload, ok := <-cl.send:
			if !ok {
				return
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
