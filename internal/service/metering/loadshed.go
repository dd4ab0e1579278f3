package metering

import (
	"context"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/observability/telemetry"
)

// LowBatteryThresholdPct triggers load shedding when the new state of
// charge falls strictly below it. The rule is one-directional: devices
// are never auto-restored when the charge recovers.
const LowBatteryThresholdPct = 25.0

const lowBatteryAlarm = "Battery below 25%: switching off all non-critical devices"

// shedNonCritical forces every non-critical device off once the battery
// drops under the threshold. Each decision is persisted, the in-memory
// snapshot is updated to match, and the device-list cache is rewritten so
// the next read observes the shed states.
func (s *Service) shedNonCritical(
	ctx context.Context,
	accountID int64,
	system *domain.EnergySystemConfig,
	devices []domain.SwitchableDevice,
	chargePct float64,
) ([]domain.SwitchableDevice, string, error) {
	if chargePct >= LowBatteryThresholdPct || len(devices) == 0 {
		return devices, "", nil
	}

	shed := false
	for i := range devices {
		if devices[i].Priority == domain.DevicePriorityCritical {
			continue
		}
		if err := s.assets.SetDeviceState(ctx, devices[i].ID, accountID, domain.DeviceStatusOff); err != nil {
			return devices, "", err
		}
		devices[i].Status = domain.DeviceStatusOff
		shed = true
	}

	if !shed {
		return devices, "", nil
	}

	var systemID *int64
	if system != nil {
		systemID = &system.ID
	}
	if err := s.assets.ReplaceDeviceListCache(ctx, accountID, systemID, devices); err != nil {
		s.log.Warn("Shed device list not cached", zap.Int64("account_id", accountID), zap.Error(err))
	}

	telemetry.LoadShedEvents.Inc()
	s.log.Info("Load shedding applied",
		zap.Int64("account_id", accountID),
		zap.Float64("charge_pct", chargePct),
	)
	return devices, lowBatteryAlarm, nil
}
