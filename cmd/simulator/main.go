// Command simulator runs the energy-balance model offline over a synthetic
// day. Useful for sizing a system (panels, inverter, battery) before
// pointing the live engine at real weather.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/service/simulation"
)

var (
	panelWattage  = flag.Float64("wp", 5000, "Total panel wattage (Wp)")
	inverterKW    = flag.Float64("inverter", 4.6, "Inverter capacity (kW)")
	baseLoadKW    = flag.Float64("base-load", 0.5, "Household base load (kW)")
	extraLoadW    = flag.Float64("extra-load", 1500, "Switched device load (W), on for the whole day")
	capacityKWh   = flag.Float64("battery", 10, "Battery capacity (kWh), 0 for a grid-tied system")
	efficiency    = flag.Float64("efficiency", 0.95, "Battery round-trip efficiency (0..1]")
	startSOC      = flag.Float64("soc", 50, "Battery state of charge at midnight (%)")
	chargeRate    = flag.Float64("charge-rate", 5, "Max battery charge rate (kW)")
	dischargeRate = flag.Float64("discharge-rate", 5, "Max battery discharge rate (kW)")
	peakIrr       = flag.Float64("peak-irradiance", 950, "Irradiance at solar noon (W/m2)")
	peakTempC     = flag.Float64("peak-temp", 31, "Afternoon peak temperature (C)")
	stepMinutes   = flag.Float64("step", 15, "Simulation step (minutes)")
)

// daylight models a clear-sky bell between 06:00 and 18:00.
func daylight(hour float64) (irradiance float64, isDay bool) {
	if hour < 6 || hour > 18 {
		return 0, false
	}
	return *peakIrr * math.Sin(math.Pi*(hour-6)/12), true
}

// ambientTemp lags solar noon by two hours, swinging 12 degrees.
func ambientTemp(hour float64) float64 {
	return *peakTempC - 12*(1-math.Sin(math.Pi*(hour-8)/16))
}

func main() {
	flag.Parse()

	system := &domain.EnergySystemConfig{
		TotalPanelWattageWp: *panelWattage,
		InverterCapacityKW:  *inverterKW,
		BaseLoadKW:          *baseLoadKW,
	}
	devices := []domain.SwitchableDevice{
		{Name: "load", RatedPowerW: *extraLoadW, Status: domain.DeviceStatusOn},
	}

	var battery *domain.BatteryConfig
	if *capacityKWh > 0 {
		battery = &domain.BatteryConfig{
			CapacityKWh:             *capacityKWh,
			Efficiency:              *efficiency,
			MaxChargeRateKW:         *chargeRate,
			MaxDischargeRateKW:      *dischargeRate,
			CurrentChargePercentage: *startSOC,
		}
	}

	dtHours := *stepMinutes / 60.0
	if dtHours <= 0 {
		fmt.Fprintln(os.Stderr, "step must be positive")
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "time\tirr W/m2\tprod kW\tcons kW\tsoc %\tflow kW\tgrid kW\t")

	var producedKWh, consumedKWh, importedKWh, exportedKWh float64

	for hour := 0.0; hour < 24.0; hour += dtHours {
		irradiance, isDay := daylight(hour)
		sample := &domain.WeatherSample{
			IrradianceWm2: irradiance,
			TemperatureC:  ambientTemp(hour),
			IsDay:         isDay,
		}

		production := simulation.SolarProduction(system, sample)
		consumption := simulation.HouseholdConsumption(system, devices)

		var update simulation.BatteryUpdate
		if battery != nil {
			update = simulation.UpdateBatteryCharge(battery, production-consumption, dtHours)
			battery.CurrentChargePercentage = update.NewChargePercentage
		}

		grid := simulation.GridContribution(production, consumption, update.FlowKW, update.LossKW)

		producedKWh += production * dtHours
		consumedKWh += consumption * dtHours
		if grid > 0 {
			importedKWh += grid * dtHours
		} else {
			exportedKWh += -grid * dtHours
		}

		soc := "-"
		if battery != nil {
			soc = fmt.Sprintf("%.1f", battery.CurrentChargePercentage)
		}
		fmt.Fprintf(w, "%02d:%02d\t%.0f\t%.3f\t%.3f\t%s\t%.3f\t%.3f\t\n",
			int(hour), int(math.Round(math.Mod(hour, 1)*60)),
			irradiance, production, consumption, soc, update.FlowKW, grid)
	}

	w.Flush()

	fmt.Printf("\nproduced %.2f kWh, consumed %.2f kWh, imported %.2f kWh, exported %.2f kWh\n",
		producedKWh, consumedKWh, importedKWh, exportedKWh)
	if battery != nil {
		fmt.Printf("battery ended the day at %.1f%%\n", battery.CurrentChargePercentage)
	}
}
