package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/ports"
)

type SessionHandler struct {
	auth   ports.AuthService
	assets ports.AssetService
	log    *zap.Logger
}

func NewSessionHandler(auth ports.AuthService, assets ports.AssetService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		auth:   auth,
		assets: assets,
		log:    log,
	}
}

// Logout revokes the session token and drops every cached entity for
// the account so the next run reads fresh state from the store.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	accountID, ok := c.Locals("account_id").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	if token, ok := c.Locals("session_token").(string); ok && token != "" {
		if err := h.auth.RevokeSession(c.Context(), token); err != nil {
			h.log.Warn("session revocation failed", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}

	if err := h.assets.InvalidateAccount(c.Context(), accountID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusOK)
}
