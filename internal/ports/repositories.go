package ports

import (
	"context"

	"github.com/homewatt/homewatt/internal/domain"
)

// Repositories wrap the persistent store. All four entity kinds are
// created during onboarding by an external collaborator; the metering
// engine only reads them, except for battery state of charge and device
// on/off state.

type ProfileRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.AccountProfile, error)
}

type EnergySystemRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.EnergySystemConfig, error)
	FindByAccountID(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error)
	// UpdateBatteryReference rewrites the battery link and the system kind
	// in one statement so the kind/battery pairing never straddles two
	// writes.
	UpdateBatteryReference(ctx context.Context, systemID int64, batteryID *int64, kind domain.SystemKind) error
}

type BatteryRepository interface {
	Save(ctx context.Context, battery *domain.BatteryConfig) error
	FindByID(ctx context.Context, id int64) (*domain.BatteryConfig, error)
	FindBySystemID(ctx context.Context, systemID int64) (*domain.BatteryConfig, error)
	UpdateChargePercentage(ctx context.Context, id int64, percentage float64) error
	Delete(ctx context.Context, id int64) error
}

type DeviceRepository interface {
	FindByAccountID(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error)
	UpdateState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error
}
