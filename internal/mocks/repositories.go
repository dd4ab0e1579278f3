package mocks

import (
	"context"

	"github.com/homewatt/homewatt/internal/domain"
)

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct {
	FindByIDFunc func(ctx context.Context, id int64) (*domain.AccountProfile, error)
}

func (m *MockProfileRepository) FindByID(ctx context.Context, id int64) (*domain.AccountProfile, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

// MockEnergySystemRepository is a mock implementation of EnergySystemRepository
type MockEnergySystemRepository struct {
	FindByIDFunc              func(ctx context.Context, id int64) (*domain.EnergySystemConfig, error)
	FindByAccountIDFunc       func(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error)
	UpdateBatteryReferenceFunc func(ctx context.Context, systemID int64, batteryID *int64, kind domain.SystemKind) error
}

func (m *MockEnergySystemRepository) FindByID(ctx context.Context, id int64) (*domain.EnergySystemConfig, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockEnergySystemRepository) FindByAccountID(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
	if m.FindByAccountIDFunc != nil {
		return m.FindByAccountIDFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockEnergySystemRepository) UpdateBatteryReference(ctx context.Context, systemID int64, batteryID *int64, kind domain.SystemKind) error {
	if m.UpdateBatteryReferenceFunc != nil {
		return m.UpdateBatteryReferenceFunc(ctx, systemID, batteryID, kind)
	}
	return nil
}

// MockBatteryRepository is a mock implementation of BatteryRepository
type MockBatteryRepository struct {
	SaveFunc                   func(ctx context.Context, battery *domain.BatteryConfig) error
	FindByIDFunc               func(ctx context.Context, id int64) (*domain.BatteryConfig, error)
	FindBySystemIDFunc         func(ctx context.Context, systemID int64) (*domain.BatteryConfig, error)
	UpdateChargePercentageFunc func(ctx context.Context, id int64, percentage float64) error
	DeleteFunc                 func(ctx context.Context, id int64) error
}

func (m *MockBatteryRepository) Save(ctx context.Context, battery *domain.BatteryConfig) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, battery)
	}
	return nil
}

func (m *MockBatteryRepository) FindByID(ctx context.Context, id int64) (*domain.BatteryConfig, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBatteryRepository) FindBySystemID(ctx context.Context, systemID int64) (*domain.BatteryConfig, error) {
	if m.FindBySystemIDFunc != nil {
		return m.FindBySystemIDFunc(ctx, systemID)
	}
	return nil, nil
}

func (m *MockBatteryRepository) UpdateChargePercentage(ctx context.Context, id int64, percentage float64) error {
	if m.UpdateChargePercentageFunc != nil {
		return m.UpdateChargePercentageFunc(ctx, id, percentage)
	}
	return nil
}

func (m *MockBatteryRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockDeviceRepository is a mock implementation of DeviceRepository
type MockDeviceRepository struct {
	FindByAccountIDFunc func(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error)
	UpdateStateFunc     func(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error
}

func (m *MockDeviceRepository) FindByAccountID(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error) {
	if m.FindByAccountIDFunc != nil {
		return m.FindByAccountIDFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockDeviceRepository) UpdateState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, deviceID, accountID, status)
	}
	return nil
}
