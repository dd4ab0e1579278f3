package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

type BatteryHandler struct {
	assets ports.AssetService
	log    *zap.Logger
}

func NewBatteryHandler(assets ports.AssetService, log *zap.Logger) *BatteryHandler {
	return &BatteryHandler{
		assets: assets,
		log:    log,
	}
}

func (h *BatteryHandler) system(c *fiber.Ctx) (*domain.EnergySystemConfig, error) {
	accountID, ok := c.Locals("account_id").(int64)
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	system, err := h.assets.GetEnergySystem(c.Context(), accountID)
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if system == nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No energy system configured"})
	}
	return system, nil
}

func (h *BatteryHandler) Get(c *fiber.Ctx) error {
	system, err := h.system(c)
	if system == nil {
		return err
	}

	battery, berr := h.assets.GetBatteryForSystem(c.Context(), system.ID)
	if berr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": berr.Error()})
	}
	if battery == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No battery attached"})
	}
	return c.JSON(battery)
}

func (h *BatteryHandler) Attach(c *fiber.Ctx) error {
	system, err := h.system(c)
	if system == nil {
		return err
	}

	var req struct {
		ModelName               string  `json:"model_name"`
		Manufacturer            string  `json:"manufacturer"`
		CapacityKWh             float64 `json:"capacity_kwh"`
		MaxChargeRateKW         float64 `json:"max_charge_rate_kw"`
		MaxDischargeRateKW      float64 `json:"max_discharge_rate_kw"`
		Efficiency              float64 `json:"efficiency"`
		CurrentChargePercentage float64 `json:"current_charge_percentage"`
	}
	if berr := c.BodyParser(&req); berr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.CapacityKWh <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Capacity must be positive"})
	}
	if req.Efficiency <= 0 || req.Efficiency > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Efficiency must be in (0, 1]"})
	}

	battery := &domain.BatteryConfig{
		ModelName:               req.ModelName,
		Manufacturer:            req.Manufacturer,
		CapacityKWh:             req.CapacityKWh,
		MaxChargeRateKW:         req.MaxChargeRateKW,
		MaxDischargeRateKW:      req.MaxDischargeRateKW,
		Efficiency:              req.Efficiency,
		CurrentChargePercentage: req.CurrentChargePercentage,
	}

	if aerr := h.assets.AttachBattery(c.Context(), system.ID, battery); aerr != nil {
		switch {
		case errors.Is(aerr, domain.ErrBatteryAlreadyAttached), errors.Is(aerr, domain.ErrInvalidSystemKind):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": aerr.Error()})
		case errors.Is(aerr, domain.ErrSystemNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": aerr.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": aerr.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(battery)
}

func (h *BatteryHandler) Detach(c *fiber.Ctx) error {
	system, err := h.system(c)
	if system == nil {
		return err
	}

	battery, berr := h.assets.GetBatteryForSystem(c.Context(), system.ID)
	if berr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": berr.Error()})
	}
	if battery == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No battery attached"})
	}

	if derr := h.assets.DetachBattery(c.Context(), battery.ID); derr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": derr.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
