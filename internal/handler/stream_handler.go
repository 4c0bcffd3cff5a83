package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/ClareAI/astra-dialer-service/internal/core/event"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteTimeout = 5 * time.Second

// EventStreamHandler pushes call lifecycle events to websocket clients, so
// operator dashboards can follow live calls without polling.
type EventStreamHandler struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; the websocket library forbids
	// concurrent writers on one connection.
	writeMu sync.Mutex
}

func NewEventStreamHandler(bus event.EventBus) *EventStreamHandler {
	h := &EventStreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	if bus != nil {
		_ = bus.SubscribeAll(h.broadcast)
	}
	return h
}

// SetupStreamRoutes registers the websocket endpoint
func (h *EventStreamHandler) SetupStreamRoutes(router *mux.Router) {
	router.HandleFunc("/events/stream", h.HandleStream)
}

// HandleStream upgrades the connection and keeps it until the client leaves.
func (h *EventStreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	logger.Base().Info("Event stream client connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("clients", count))

	// Drain reads so pings and close frames are processed; the stream is
	// write-only from our side.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast fans one event out to every connected client.
func (h *EventStreamHandler) broadcast(ev *event.CallEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.drop(conn)
		}
	}
}

func (h *EventStreamHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}

// ClientCount returns how many stream clients are connected.
func (h *EventStreamHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
