package domain

import (
	"time"
)

type SystemKind string

const (
	SystemKindGridTied       SystemKind = "grid_tied"
	SystemKindGridTiedHybrid SystemKind = "grid_tied_hybrid"
)

// EnergySystemConfig describes one account's PV installation. A grid-tied
// system never references a battery; a grid-tied-hybrid system always does.
type EnergySystemConfig struct {
	ID                  int64      `json:"system_id" gorm:"primaryKey"`
	AccountID           int64      `json:"account_id" gorm:"uniqueIndex"`
	TotalPanelWattageWp float64    `json:"total_panel_wattage_wp"`
	InverterCapacityKW  float64    `json:"inverter_capacity_kw"`
	BaseLoadKW          float64    `json:"base_load_kw"`
	TiltDegrees         float64    `json:"tilt_degrees"`
	AzimuthDegrees      float64    `json:"azimuth_degrees"`
	BatteryID           *int64     `json:"battery_id,omitempty"`
	SystemKind          SystemKind `json:"system_kind"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (EnergySystemConfig) TableName() string {
	return "energy_systems"
}

// Validate enforces the battery/kind pairing invariant.
func (s *EnergySystemConfig) Validate() error {
	switch s.SystemKind {
	case SystemKindGridTied:
		if s.BatteryID != nil {
			return ErrInvalidSystemKind
		}
	case SystemKindGridTiedHybrid:
		if s.BatteryID == nil {
			return ErrInvalidSystemKind
		}
	default:
		return ErrInvalidSystemKind
	}
	return nil
}

// BatteryConfig holds the storage parameters of a hybrid system.
// CurrentChargePercentage is the single field the metering engine mutates.
type BatteryConfig struct {
	ID                      int64     `json:"battery_id" gorm:"primaryKey"`
	SystemID                *int64    `json:"system_id,omitempty" gorm:"uniqueIndex"`
	ModelName               string    `json:"model_name"`
	Manufacturer            string    `json:"manufacturer"`
	CapacityKWh             float64   `json:"capacity_kwh"`
	MaxChargeRateKW         float64   `json:"max_charge_rate_kw"`
	MaxDischargeRateKW      float64   `json:"max_discharge_rate_kw"`
	Efficiency              float64   `json:"efficiency"`
	CurrentChargePercentage float64   `json:"current_charge_percentage"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (BatteryConfig) TableName() string {
	return "batteries"
}

// StoredEnergyKWh converts the percentage state of charge to kWh.
func (b *BatteryConfig) StoredEnergyKWh() float64 {
	return (b.CurrentChargePercentage / 100.0) * b.CapacityKWh
}
