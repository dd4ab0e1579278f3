package assets

import (
	"fmt"
	"time"
)

// TTL classes per entity kind. Reverse-index keys are written without
// expiry and deleted explicitly when the relationship changes.
const (
	ProfileTTL    = time.Hour
	SystemTTL     = time.Hour
	BatteryTTL    = 30 * time.Minute
	DeviceListTTL = 10 * time.Minute
)

func profileKey(accountID int64) string {
	return fmt.Sprintf("account:%d", accountID)
}

func systemKey(systemID int64) string {
	return fmt.Sprintf("energy_system:%d", systemID)
}

func batteryKey(batteryID int64) string {
	return fmt.Sprintf("battery:%d", batteryID)
}

func deviceListKey(accountID int64) string {
	return fmt.Sprintf("account_devices:%d", accountID)
}

// accountSystemKey maps account id -> energy system id.
func accountSystemKey(accountID int64) string {
	return fmt.Sprintf("account_energy_system_id:%d", accountID)
}

// systemBatteryKey maps energy system id -> battery id.
func systemBatteryKey(systemID int64) string {
	return fmt.Sprintf("energy_system_battery_id:%d", systemID)
}
