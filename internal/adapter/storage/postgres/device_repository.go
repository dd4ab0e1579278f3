package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

type DeviceRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDeviceRepository(db *gorm.DB, log *zap.Logger) ports.DeviceRepository {
	return &DeviceRepository{
		db:  db,
		log: log,
	}
}

func (r *DeviceRepository) FindByAccountID(ctx context.Context, accountID int64) ([]domain.SwitchableDevice, error) {
	var devices []domain.SwitchableDevice
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// UpdateState scopes the write to the owning account so one account can
// never flip another's devices.
func (r *DeviceRepository) UpdateState(ctx context.Context, deviceID, accountID int64, status domain.DeviceStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.SwitchableDevice{}).
		Where("id = ? AND account_id = ?", deviceID, accountID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}
