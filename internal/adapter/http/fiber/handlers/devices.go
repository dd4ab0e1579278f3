package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

type DeviceHandler struct {
	assets ports.AssetService
	log    *zap.Logger
}

func NewDeviceHandler(assets ports.AssetService, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		assets: assets,
		log:    log,
	}
}

func (h *DeviceHandler) List(c *fiber.Ctx) error {
	accountID, ok := c.Locals("account_id").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	devices, err := h.assets.GetDevices(c.Context(), accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if devices == nil {
		devices = []domain.SwitchableDevice{}
	}
	return c.JSON(devices)
}

func (h *DeviceHandler) SetState(c *fiber.Ctx) error {
	accountID, ok := c.Locals("account_id").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	deviceID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid device id"})
	}

	var req struct {
		Status domain.DeviceStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Status != domain.DeviceStatusOn && req.Status != domain.DeviceStatusOff {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Status must be on or off"})
	}

	if err := h.assets.SetDeviceState(c.Context(), deviceID, accountID, req.Status); err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Device not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusOK)
}
