// Package simulation holds the pure energy-balance computation. The four
// steps (solar production, household consumption, battery flow, grid
// contribution) are deliberately independent functions so each can be
// unit-tested in isolation; the metering pipeline calls them in order.
package simulation

import (
	"math"

	"github.com/homewatt/homewatt/internal/domain"
)

const (
	// IStcWm2 is the reference irradiance under standard test conditions.
	// Panel nameplate power is specified against it.
	IStcWm2 = 1000.0

	// SystemEfficiency approximates inverter, wiring and soiling losses
	// between the panels and the point of consumption.
	SystemEfficiency = 0.80

	// RefTempC and TempCoefficient model the efficiency drop of panels
	// above the reference cell temperature (0.4 %/°C).
	RefTempC        = 25.0
	TempCoefficient = 0.004
)

// SolarProduction computes the instantaneous PV output in kW.
//
//	P = min(InverterCap, (Wp/1000) * (I/I_STC) * η_system * η_temp)
//
// Output is exactly 0 at night regardless of the reported irradiance, and
// never negative.
func SolarProduction(sys *domain.EnergySystemConfig, w *domain.WeatherSample) float64 {
	if sys == nil || w == nil || !w.IsDay {
		return 0
	}

	effTemp := 1.0 - math.Max(0, (w.TemperatureC-RefTempC)*TempCoefficient)

	productionKW := (sys.TotalPanelWattageWp / 1000.0) * (w.IrradianceWm2 / IStcWm2) * SystemEfficiency * effTemp

	// The inverter is the bottleneck: it cannot pass more power than its
	// rated capacity.
	productionKW = math.Min(productionKW, sys.InverterCapacityKW)

	return math.Max(0, productionKW)
}

// HouseholdConsumption sums the fixed base load with every device that is
// currently on, in kW.
func HouseholdConsumption(sys *domain.EnergySystemConfig, devices []domain.SwitchableDevice) float64 {
	var baseKW float64
	if sys != nil {
		baseKW = sys.BaseLoadKW
	}

	var deviceW float64
	for _, d := range devices {
		if d.Status == domain.DeviceStatusOn {
			deviceW += d.RatedPowerW
		}
	}

	return baseKW + deviceW/1000.0
}

// BatteryUpdate is the outcome of one battery tick.
type BatteryUpdate struct {
	// NewChargePercentage is the state of charge after the tick, clamped
	// to [0, 100].
	NewChargePercentage float64
	// FlowKW is the power reaching or leaving storage: positive while
	// charging, negative while discharging.
	FlowKW float64
	// LossKW is the round-trip loss charged to the grid balance, always
	// >= 0.
	LossKW float64
}

// UpdateBatteryCharge applies the net balance (production minus
// consumption) to the battery over dtHours.
//
// Charging stores min(net·Δt·η, MaxChargeRate·Δt, remaining capacity);
// discharging releases min(|net|·Δt/η, MaxDischargeRate·Δt, stored
// energy). The loss is the part of the pre-efficiency energy that never
// reached (or left) storage. A battery with zero or missing capacity is a
// no-op.
func UpdateBatteryCharge(bat *domain.BatteryConfig, netPowerKW, dtHours float64) BatteryUpdate {
	if bat == nil || bat.CapacityKWh <= 0 || dtHours <= 0 {
		var pct float64
		if bat != nil {
			pct = bat.CurrentChargePercentage
		}
		return BatteryUpdate{NewChargePercentage: pct}
	}

	efficiency := bat.Efficiency
	if efficiency <= 0 || efficiency > 1 {
		efficiency = 1.0
	}

	storedKWh := bat.StoredEnergyKWh()

	var deltaKWh, lossKWh float64

	switch {
	case netPowerKW > 0:
		// Surplus: charge. The efficiency penalty applies on the way in,
		// so the energy drawn from the balance exceeds what is stored.
		availableKWh := netPowerKW * dtHours
		rateCapKWh := bat.MaxChargeRateKW * dtHours
		remainingKWh := bat.CapacityKWh - storedKWh

		storedAmount := math.Min(availableKWh*efficiency, math.Min(rateCapKWh, remainingKWh))
		deltaKWh = storedAmount
		lossKWh = storedAmount/efficiency - storedAmount

	case netPowerKW < 0:
		// Deficit: discharge. More energy leaves storage than arrives at
		// the household.
		neededKWh := math.Abs(netPowerKW) * dtHours
		rateCapKWh := bat.MaxDischargeRateKW * dtHours

		releasedAmount := math.Min(neededKWh/efficiency, math.Min(rateCapKWh, storedKWh))
		deltaKWh = -releasedAmount
		lossKWh = releasedAmount - releasedAmount*efficiency
	}

	newKWh := math.Max(0, math.Min(bat.CapacityKWh, storedKWh+deltaKWh))

	return BatteryUpdate{
		NewChargePercentage: (newKWh / bat.CapacityKWh) * 100.0,
		FlowKW:              deltaKWh / dtHours,
		LossKW:              lossKWh / dtHours,
	}
}

// GridContribution is the net exchange with the utility grid: positive
// means import, negative means export.
//
// The loss term charges round-trip inefficiency to the grid balance so
// that import/export always reconciles against actual production and
// consumption.
func GridContribution(productionKW, consumptionKW, batteryFlowKW, batteryLossKW float64) float64 {
	return (consumptionKW - productionKW) + batteryFlowKW + batteryLossKW
}
