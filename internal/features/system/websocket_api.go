package system

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/common/api"
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/notification"
	"github.com/NCGHoldings/StoresONE-sub000/internal/middleware"
	"github.com/NCGHoldings/StoresONE-sub000/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebSocketApi exposes the live notification stream. Clients connect once and
// receive every notification pushed to their user id.
type WebSocketApi struct {
	hub    *notification.Hub
	config *config.Config
	log    *zap.Logger
}

func NewWebSocketApi(hub *notification.Hub, cfg *config.Config, log *zap.Logger) api.Route {
	return &WebSocketApi{
		hub:    hub,
		config: cfg,
		log:    log,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Use("/api/ws", middleware.AuthMiddleware(h.config.SkipAuth), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/api/ws", websocket.New(h.handle))
}

func (h *WebSocketApi) handle(c *websocket.Conn) {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		_ = c.Close()
		return
	}

	h.hub.Register(claims.UserID, c)
	defer func() {
		h.hub.Unregister(claims.UserID, c)
		_ = c.Close()
	}()

	// Read loop only detects disconnects; the stream is push-only.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			h.log.Debug("websocket closed",
				zap.String("user_id", claims.UserID),
				zap.Error(err))
			return
		}
	}
}
