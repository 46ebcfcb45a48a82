package notification

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Hub tracks live websocket connections per user and pushes notification
// payloads to whoever is connected. Offline users still get the persisted
// notification; the push is best effort.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*websocket.Conn
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string][]*websocket.Conn),
		log:   log,
	}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], conn)
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[userID]
	for i, c := range conns {
		if c == conn {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Push sends a JSON payload to every live connection of the user. Write
// failures only log; the connection is cleaned up by its read loop.
func (h *Hub) Push(userID string, payload interface{}) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.conns[userID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Warn("websocket push failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}
