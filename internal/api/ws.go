package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/pkg/logger"
)

// Hub fans screening progress events out to websocket subscribers.
// Slow or dead connections are dropped rather than allowed to stall a run.
// ⭐ SSOT: 진행률 브로드캐스트는 이 허브에서만
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a websocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log.WithField("component", "ws_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 대시보드는 별도 오리진에서 접속한다
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// wsEvent is the envelope pushed to subscribers
type wsEvent struct {
	Type    string      `json:"type"` // progress | complete
	Payload interface{} `json:"payload"`
}

// HandleWS upgrades the connection and keeps it subscribed until it closes
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()
	h.logger.WithField("subscribers", count).Debug("WebSocket subscriber connected")

	// Inbound messages are ignored; the read loop only detects closure
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastProgress pushes a progress event to all subscribers
func (h *Hub) BroadcastProgress(p contracts.Progress) {
	h.broadcast(wsEvent{Type: "progress", Payload: p})
}

// BroadcastComplete pushes a run summary to all subscribers
func (h *Hub) BroadcastComplete(s contracts.RunSummary) {
	h.broadcast(wsEvent{Type: "complete", Payload: s})
}

func (h *Hub) broadcast(event wsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal ws event")
		return
	}

	// Writes stay under the hub lock: gorilla connections do not allow
	// concurrent writers
	h.mu.Lock()
	var failed []*websocket.Conn
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			failed = append(failed, conn)
		}
	}
	for _, conn := range failed {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.logger.Debug("WebSocket subscriber disconnected")
	}
}
