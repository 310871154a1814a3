package api

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// identityContextKey is the fiber.Ctx local under which the verified
// identity is stored.
const identityContextKey = "identity"

// AuthMiddleware validates the bearer token on HTTP requests and stores
// the verified identity in the request context.
func (h *Handlers) AuthMiddleware(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Authorization header is required",
		})
	}

	identity, err := h.authAdapter.VerifyToken(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(identityContextKey, identity)
	return c.Next()
}

// UpgradeMiddleware gates the WebSocket endpoint. The credential is
// verified before the upgrade happens; a refused credential never
// reaches the event loop.
func (h *Handlers) UpgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := bearerToken(c)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication token is required",
		})
	}

	identity, err := h.authAdapter.VerifyToken(c.Context(), token)
	if err != nil {
		h.logger.Warn("websocket credential refused", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(identityContextKey, identity)
	return c.Next()
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
