package mocks

import (
	"context"
	"sync"

	"github.com/homewatt/homewatt/internal/domain"
)

// MockAssetService is a mock implementation of AssetService
type MockAssetService struct {
	GetProfileFunc             func(ctx context.Context, accountID int64) (*domain.AccountProfile, error)
	GetEnergySystemFunc        func(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error)
	GetBatteryFunc             func(ctx context.Context, batteryID int64) (*domain.BatteryConfig, error)
	GetBatteryForSystemFunc    func(ctx context.Context, systemID int64) (*domain.BatteryConfig, error)
	GetDevicesFunc             func(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error)
	UpdateBatteryChargeFunc    func(ctx context.Context, battery *domain.BatteryConfig, percentage float64) error
	SetDeviceStateFunc         func(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error
	ReplaceDeviceListCacheFunc func(ctx context.Context, accountID int64, systemID *int64, devices []domain.SwitchableDevice) error
	AttachBatteryFunc          func(ctx context.Context, systemID int64, battery *domain.BatteryConfig) error
	DetachBatteryFunc          func(ctx context.Context, batteryID int64) error
	InvalidateAccountFunc      func(ctx context.Context, accountID int64) error
}

func (m *MockAssetService) GetProfile(ctx context.Context, accountID int64) (*domain.AccountProfile, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockAssetService) GetEnergySystem(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
	if m.GetEnergySystemFunc != nil {
		return m.GetEnergySystemFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockAssetService) GetBattery(ctx context.Context, batteryID int64) (*domain.BatteryConfig, error) {
	if m.GetBatteryFunc != nil {
		return m.GetBatteryFunc(ctx, batteryID)
	}
	return nil, nil
}

func (m *MockAssetService) GetBatteryForSystem(ctx context.Context, systemID int64) (*domain.BatteryConfig, error) {
	if m.GetBatteryForSystemFunc != nil {
		return m.GetBatteryForSystemFunc(ctx, systemID)
	}
	return nil, nil
}

func (m *MockAssetService) GetDevices(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error) {
	if m.GetDevicesFunc != nil {
		return m.GetDevicesFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockAssetService) UpdateBatteryCharge(ctx context.Context, battery *domain.BatteryConfig, percentage float64) error {
	if m.UpdateBatteryChargeFunc != nil {
		return m.UpdateBatteryChargeFunc(ctx, battery, percentage)
	}
	return nil
}

func (m *MockAssetService) SetDeviceState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
	if m.SetDeviceStateFunc != nil {
		return m.SetDeviceStateFunc(ctx, deviceID, accountID, status)
	}
	return nil
}

func (m *MockAssetService) ReplaceDeviceListCache(ctx context.Context, accountID int64, systemID *int64, devices []domain.SwitchableDevice) error {
	if m.ReplaceDeviceListCacheFunc != nil {
		return m.ReplaceDeviceListCacheFunc(ctx, accountID, systemID, devices)
	}
	return nil
}

func (m *MockAssetService) AttachBattery(ctx context.Context, systemID int64, battery *domain.BatteryConfig) error {
	if m.AttachBatteryFunc != nil {
		return m.AttachBatteryFunc(ctx, systemID, battery)
	}
	return nil
}

func (m *MockAssetService) DetachBattery(ctx context.Context, batteryID int64) error {
	if m.DetachBatteryFunc != nil {
		return m.DetachBatteryFunc(ctx, batteryID)
	}
	return nil
}

func (m *MockAssetService) InvalidateAccount(ctx context.Context, accountID int64) error {
	if m.InvalidateAccountFunc != nil {
		return m.InvalidateAccountFunc(ctx, accountID)
	}
	return nil
}

// MockWeatherProvider is a mock implementation of WeatherProvider
type MockWeatherProvider struct {
	FetchFunc func(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error)
}

func (m *MockWeatherProvider) Fetch(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, lat, lon, tilt, azimuth)
	}
	return &domain.WeatherSample{}, nil
}

// MockBroadcaster records every payload handed to it per account.
type MockBroadcaster struct {
	mu       sync.Mutex
	Payloads map[int64][][]byte
	BroadcastFunc func(accountID int64, payload []byte)
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{
		Payloads: make(map[int64][][]byte),
	}
}

func (m *MockBroadcaster) Broadcast(accountID int64, payload []byte) {
	if m.BroadcastFunc != nil {
		m.BroadcastFunc(accountID, payload)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads[accountID] = append(m.Payloads[accountID], payload)
}

// Sent returns the payloads broadcast to an account so far.
func (m *MockBroadcaster) Sent(accountID int64) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Payloads[accountID]
}

// MockSessionRegistry is a mock implementation of SessionRegistry
type MockSessionRegistry struct {
	ActiveAccountsFunc func() []int64
}

func (m *MockSessionRegistry) ActiveAccounts() []int64 {
	if m.ActiveAccountsFunc != nil {
		return m.ActiveAccountsFunc()
	}
	return nil
}

// MockMeteringService is a mock implementation of MeteringService
type MockMeteringService struct {
	ComputeAndPublishFunc func(ctx context.Context, accountID int64) error
}

func (m *MockMeteringService) ComputeAndPublish(ctx context.Context, accountID int64) error {
	if m.ComputeAndPublishFunc != nil {
		return m.ComputeAndPublishFunc(ctx, accountID)
	}
	return nil
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	IdentityForSessionFunc func(ctx context.Context, token string) (int64, error)
	RevokeSessionFunc      func(ctx context.Context, token string) error
}

func (m *MockAuthService) IdentityForSession(ctx context.Context, token string) (int64, error) {
	if m.IdentityForSessionFunc != nil {
		return m.IdentityForSessionFunc(ctx, token)
	}
	return 0, nil
}

func (m *MockAuthService) RevokeSession(ctx context.Context, token string) error {
	if m.RevokeSessionFunc != nil {
		return m.RevokeSessionFunc(ctx, token)
	}
	return nil
}
