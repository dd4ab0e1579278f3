package domain

import (
	"time"
)

// WeatherSample is one irradiance/temperature reading for a tilted panel
// surface, as returned by the weather provider.
type WeatherSample struct {
	IrradianceWm2 float64 `json:"global_tilted_irradiance_instant"`
	TemperatureC  float64 `json:"temperature_2m"`
	IsDay         bool    `json:"is_day"`
}

// LiveMeteringResult is the payload pushed to live sessions after every
// pipeline run. It is cached per account for a few seconds as a debounce
// window and is never persisted.
type LiveMeteringResult struct {
	Timestamp               time.Time          `json:"timestamp"`
	AccountID               int64              `json:"account_id"`
	SolarProductionKW       float64            `json:"solar_production_kw"`
	HouseholdConsumptionKW  float64            `json:"household_consumption_kw"`
	BatteryChargePercentage float64            `json:"battery_charge_percentage"`
	BatteryFlowKW           float64            `json:"battery_flow_kw"`
	BatteryLossKW           float64            `json:"battery_loss_kw"`
	GridContributionKW      float64            `json:"grid_contribution_kw"`
	IrradianceWm2           float64            `json:"global_tilted_irradiance_instant"`
	TemperatureC            float64            `json:"current_temperature_c"`
	IsDay                   bool               `json:"is_day"`
	Alarm                   string             `json:"alarm,omitempty"`
	Devices                 []SwitchableDevice `json:"devices"`
}
