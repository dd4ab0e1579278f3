package domain

import (
	"time"
)

type DevicePriority string

const (
	DevicePriorityCritical     DevicePriority = "critical"
	DevicePriorityMedium       DevicePriority = "medium"
	DevicePriorityLow          DevicePriority = "low"
	DevicePriorityNonEssential DevicePriority = "non_essential"
)

type DeviceStatus string

const (
	DeviceStatusOn  DeviceStatus = "on"
	DeviceStatusOff DeviceStatus = "off"
)

// SwitchableDevice is an IoT load that the node can turn on and off.
// Critical devices are exempt from automatic load shedding.
type SwitchableDevice struct {
	ID          int64          `json:"device_id" gorm:"primaryKey"`
	AccountID   int64          `json:"account_id" gorm:"index"`
	SystemID    *int64         `json:"system_id,omitempty"`
	Name        string         `json:"name"`
	RatedPowerW float64        `json:"rated_power_w"`
	Priority    DevicePriority `json:"priority"`
	Status      DeviceStatus   `json:"status"`
	IsSmart     bool           `json:"is_smart"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (SwitchableDevice) TableName() string {
	return "switchable_devices"
}

// DeviceListSnapshot is the cache envelope for an account's full device
// list. Mutating one device invalidates the whole envelope.
type DeviceListSnapshot struct {
	AccountID int64              `json:"account_id"`
	SystemID  *int64             `json:"system_id,omitempty"`
	Devices   []SwitchableDevice `json:"devices"`
	CachedAt  int64              `json:"cached_at"`
}
