package ports

import (
	"context"

	"github.com/homewatt/homewatt/internal/domain"
)

// AssetService is the cache-aside accessor over the four entity kinds.
// Reads go cache first, then store, then fill the cache with the entity's
// TTL class. Mutations write store and cache in the same logical step.
type AssetService interface {
	GetProfile(ctx context.Context, accountID int64) (*domain.AccountProfile, error)
	GetEnergySystem(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error)
	GetBattery(ctx context.Context, batteryID int64) (*domain.BatteryConfig, error)
	GetBatteryForSystem(ctx context.Context, systemID int64) (*domain.BatteryConfig, error)
	GetDevices(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error)

	UpdateBatteryCharge(ctx context.Context, battery *domain.BatteryConfig, percentage float64) error
	SetDeviceState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error
	ReplaceDeviceListCache(ctx context.Context, accountID int64, systemID *int64, devices []domain.SwitchableDevice) error

	AttachBattery(ctx context.Context, systemID int64, battery *domain.BatteryConfig) error
	DetachBattery(ctx context.Context, batteryID int64) error
	InvalidateAccount(ctx context.Context, accountID int64) error
}

// MeteringService runs the full live-metering pipeline for one account
// and publishes the result to its live sessions.
type MeteringService interface {
	ComputeAndPublish(ctx context.Context, accountID int64) error
}

// WeatherProvider returns the current irradiance sample for a tilted
// panel surface. Implementations retry with backoff; an error means the
// pipeline run must abort without mutating anything.
type WeatherProvider interface {
	Fetch(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error)
}

// Broadcaster fans a payload out to every live session of an account.
// Delivery failure for one session must not block the others.
type Broadcaster interface {
	Broadcast(accountID int64, payload []byte)
}

// SessionRegistry is the explicit set of accounts with at least one live
// session, consulted by the periodic trigger.
type SessionRegistry interface {
	ActiveAccounts() []int64
}

// AuthService resolves a session token to an account id before the
// connection trigger fires. Token issuance and rotation live elsewhere;
// RevokeSession blacklists a token until its natural expiry.
type AuthService interface {
	IdentityForSession(ctx context.Context, token string) (int64, error)
	RevokeSession(ctx context.Context, token string) error
}
