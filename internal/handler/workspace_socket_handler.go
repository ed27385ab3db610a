package handler

import (
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/internal/pkg/serverutils"
	internalWS "monitoring-workspace-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WorkspaceSocketHandler upgrades authenticated requests to a websocket that
// receives the user's workspace changes.
type WorkspaceSocketHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewWorkspaceSocketHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *WorkspaceSocketHandler {
	return &WorkspaceSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *WorkspaceSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/workspace/v1/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *WorkspaceSocketHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query
	// parameter comes first.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c.Get("Authorization"))
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Missing token (Query 'token' or Header 'Authorization')", nil))
	}

	userID, err := serverutils.ParseUserID(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("WorkspaceSocket", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Invalid token", nil))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WorkspaceSocket", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("WorkspaceSocket", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
