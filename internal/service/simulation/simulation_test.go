package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/homewatt/homewatt/internal/domain"
)

var testSystem = domain.EnergySystemConfig{
	ID:                  1,
	AccountID:           1,
	TotalPanelWattageWp: 5000,
	InverterCapacityKW:  4.5,
	BaseLoadKW:          0.5,
	TiltDegrees:         35,
	AzimuthDegrees:      180,
	SystemKind:          domain.SystemKindGridTiedHybrid,
}

func testBattery() *domain.BatteryConfig {
	return &domain.BatteryConfig{
		ID:                      7,
		CapacityKWh:             10,
		MaxChargeRateKW:         3,
		MaxDischargeRateKW:      4,
		Efficiency:              0.9,
		CurrentChargePercentage: 50,
	}
}

const dtMinute = 1.0 / 60.0

func TestSolarProduction_SunnyDay(t *testing.T) {
	w := &domain.WeatherSample{IrradianceWm2: 800, TemperatureC: 25, IsDay: true}
	// (5000/1000) * (800/1000) * 0.80 = 3.2 kW, under the 4.5 kW inverter.
	assert.InDelta(t, 3.2, SolarProduction(&testSystem, w), 0.01)
}

func TestSolarProduction_Night(t *testing.T) {
	w := &domain.WeatherSample{IrradianceWm2: 650, TemperatureC: 10, IsDay: false}
	assert.Equal(t, 0.0, SolarProduction(&testSystem, w))
}

func TestSolarProduction_InverterClipping(t *testing.T) {
	big := testSystem
	big.TotalPanelWattageWp = 10000

	w := &domain.WeatherSample{IrradianceWm2: 1000, TemperatureC: 25, IsDay: true}
	// Potential 8.0 kW, clipped to the inverter.
	assert.InDelta(t, 4.5, SolarProduction(&big, w), 0.01)

	// Clipping holds for any nameplate/irradiance combination.
	big.TotalPanelWattageWp = 50000
	w.IrradianceWm2 = 1200
	assert.LessOrEqual(t, SolarProduction(&big, w), big.InverterCapacityKW)
}

func TestSolarProduction_TemperatureDerating(t *testing.T) {
	w := &domain.WeatherSample{IrradianceWm2: 1000, TemperatureC: 45, IsDay: true}
	// η_temp = 1 - 20*0.004 = 0.92 → 5 * 1.0 * 0.80 * 0.92 = 3.68 kW
	assert.InDelta(t, 3.68, SolarProduction(&testSystem, w), 0.01)
}

func TestSolarProduction_ColdWeatherDoesNotBoost(t *testing.T) {
	cold := &domain.WeatherSample{IrradianceWm2: 150, TemperatureC: 15, IsDay: true}
	// η_temp capped at 1.0 below the reference temperature.
	assert.InDelta(t, 0.6, SolarProduction(&testSystem, cold), 0.01)
}

func TestHouseholdConsumption(t *testing.T) {
	devices := []domain.SwitchableDevice{
		{ID: 1, RatedPowerW: 100, Status: domain.DeviceStatusOn},
		{ID: 2, RatedPowerW: 2000, Status: domain.DeviceStatusOff},
		{ID: 3, RatedPowerW: 50, Status: domain.DeviceStatusOn},
	}

	// 0.5 base + 0.1 + 0.05
	assert.InDelta(t, 0.65, HouseholdConsumption(&testSystem, devices), 0.001)

	for i := range devices {
		devices[i].Status = domain.DeviceStatusOn
	}
	assert.InDelta(t, 2.65, HouseholdConsumption(&testSystem, devices), 0.001)

	assert.InDelta(t, 0.5, HouseholdConsumption(&testSystem, nil), 0.001)
}

func TestUpdateBatteryCharge_Charging(t *testing.T) {
	bat := testBattery()

	// 2 kW surplus over one minute: stores 2*(1/60)*0.9 = 0.03 kWh.
	upd := UpdateBatteryCharge(bat, 2.0, dtMinute)

	assert.InDelta(t, 50.3, upd.NewChargePercentage, 0.01)
	assert.InDelta(t, 1.8, upd.FlowKW, 0.01)
	assert.InDelta(t, 0.2, upd.LossKW, 0.01)
}

func TestUpdateBatteryCharge_ChargeRateLimit(t *testing.T) {
	bat := testBattery()

	// 10 kW surplus is rate-limited to the 3 kW charger.
	upd := UpdateBatteryCharge(bat, 10.0, dtMinute)

	assert.InDelta(t, 3.0, upd.FlowKW, 0.01)
	assert.InDelta(t, 50.5, upd.NewChargePercentage, 0.01)
}

func TestUpdateBatteryCharge_Discharging(t *testing.T) {
	bat := testBattery()

	// 3 kW deficit: releases 3/0.9 kW worth of stored energy.
	upd := UpdateBatteryCharge(bat, -3.0, dtMinute)

	assert.InDelta(t, -3.0/0.9, upd.FlowKW, 0.01)
	assert.Greater(t, upd.LossKW, 0.0)
	assert.Less(t, upd.NewChargePercentage, 50.0)
}

func TestUpdateBatteryCharge_DischargeRateLimit(t *testing.T) {
	bat := testBattery()

	upd := UpdateBatteryCharge(bat, -20.0, dtMinute)
	assert.InDelta(t, -4.0, upd.FlowKW, 0.01)
}

func TestUpdateBatteryCharge_EmptyBatteryCannotDischarge(t *testing.T) {
	bat := testBattery()
	bat.CurrentChargePercentage = 0

	upd := UpdateBatteryCharge(bat, -5.0, dtMinute)

	assert.Equal(t, 0.0, upd.FlowKW)
	assert.Equal(t, 0.0, upd.NewChargePercentage)
}

func TestUpdateBatteryCharge_FullBatteryCannotCharge(t *testing.T) {
	bat := testBattery()
	bat.CurrentChargePercentage = 100

	upd := UpdateBatteryCharge(bat, 5.0, dtMinute)

	assert.Equal(t, 0.0, upd.FlowKW)
	assert.Equal(t, 100.0, upd.NewChargePercentage)
}

func TestUpdateBatteryCharge_ZeroCapacity(t *testing.T) {
	bat := testBattery()
	bat.CapacityKWh = 0
	bat.CurrentChargePercentage = 42

	upd := UpdateBatteryCharge(bat, 5.0, dtMinute)

	assert.Equal(t, 0.0, upd.FlowKW)
	assert.Equal(t, 0.0, upd.LossKW)
	assert.Equal(t, 42.0, upd.NewChargePercentage)
}

func TestUpdateBatteryCharge_NilBattery(t *testing.T) {
	upd := UpdateBatteryCharge(nil, 5.0, dtMinute)
	assert.Equal(t, BatteryUpdate{}, upd)
}

func TestUpdateBatteryCharge_BoundsHoldForExtremeInputs(t *testing.T) {
	for _, net := range []float64{-1e6, -50, -1, 0, 1, 50, 1e6} {
		bat := testBattery()
		upd := UpdateBatteryCharge(bat, net, 1.0)

		assert.GreaterOrEqual(t, upd.NewChargePercentage, 0.0, "net=%v", net)
		assert.LessOrEqual(t, upd.NewChargePercentage, 100.0, "net=%v", net)
		assert.GreaterOrEqual(t, upd.LossKW, 0.0, "net=%v", net)
	}
}

func TestGridContribution_EnergyConservation(t *testing.T) {
	cases := []struct {
		name       string
		production float64
		netLoad    float64 // consumption
	}{
		{"surplus charges battery", 4.0, 1.0},
		{"deficit discharges battery", 0.5, 3.0},
		{"large surplus exports", 8.0, 0.5},
		{"large deficit imports", 0.0, 12.0},
		{"balanced", 2.0, 2.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bat := testBattery()
			upd := UpdateBatteryCharge(bat, tc.production-tc.netLoad, dtMinute)

			grid := GridContribution(tc.production, tc.netLoad, upd.FlowKW, upd.LossKW)

			// The identity grid = (cons - prod) + flow + loss must hold
			// exactly; every kW drawn from the balance is accounted for.
			assert.InDelta(t, (tc.netLoad-tc.production)+upd.FlowKW+upd.LossKW, grid, 1e-9)
		})
	}
}

func TestGridContribution_SignConvention(t *testing.T) {
	// Deficit with no battery: pure import, positive.
	assert.InDelta(t, 2.5, GridContribution(0.5, 3.0, 0, 0), 1e-9)
	// Surplus with no battery: pure export, negative.
	assert.InDelta(t, -3.5, GridContribution(4.0, 0.5, 0, 0), 1e-9)
}
