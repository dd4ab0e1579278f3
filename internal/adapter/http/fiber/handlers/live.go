package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	hub "github.com/homewatt/homewatt/internal/adapter/websocket"
	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

// LiveHandler upgrades authenticated connections onto the live metering
// channel. Each new session triggers one immediate pipeline run so the
// client does not wait for the next scheduler tick.
type LiveHandler struct {
	hub      *hub.Hub
	auth     ports.AuthService
	metering ports.MeteringService
	log      *zap.Logger
}

func NewLiveHandler(h *hub.Hub, auth ports.AuthService, metering ports.MeteringService, log *zap.Logger) *LiveHandler {
	return &LiveHandler{
		hub:      h,
		auth:     auth,
		metering: metering,
		log:      log,
	}
}

// Upgrade authenticates the session token and gates the websocket
// upgrade. Browsers cannot set headers on websocket dials, so the token
// rides a query parameter.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
	}

	accountID, err := h.auth.IdentityForSession(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("account_id", accountID)
	return c.Next()
}

// Stream is the websocket handler proper. It blocks for the lifetime of
// the connection.
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		accountID, ok := conn.Locals("account_id").(int64)
		if !ok {
			conn.Close()
			return
		}

		// Connection trigger: compute once right away. A concurrent run
		// for the same account is fine, the new session still gets the
		// debounced payload.
		go func() {
			err := h.metering.ComputeAndPublish(context.Background(), accountID)
			if err != nil && !errors.Is(err, domain.ErrComputationInFlight) {
				h.log.Warn("initial metering run failed",
					zap.Int64("account_id", accountID),
					zap.Error(err),
				)
			}
		}()

		h.hub.AddClient(conn, accountID)
	})
}
