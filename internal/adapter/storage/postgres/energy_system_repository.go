package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

type EnergySystemRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEnergySystemRepository(db *gorm.DB, log *zap.Logger) ports.EnergySystemRepository {
	return &EnergySystemRepository{
		db:  db,
		log: log,
	}
}

func (r *EnergySystemRepository) FindByID(ctx context.Context, id int64) (*domain.EnergySystemConfig, error) {
	var system domain.EnergySystemConfig
	err := r.db.WithContext(ctx).First(&system, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &system, nil
}

func (r *EnergySystemRepository) FindByAccountID(ctx context.Context, accountID int64) (*domain.EnergySystemConfig, error) {
	var system domain.EnergySystemConfig
	err := r.db.WithContext(ctx).First(&system, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &system, nil
}

func (r *EnergySystemRepository) UpdateBatteryReference(ctx context.Context, systemID int64, batteryID *int64, kind domain.SystemKind) error {
	return r.db.WithContext(ctx).
		Model(&domain.EnergySystemConfig{}).
		Where("id = ?", systemID).
		Updates(map[string]interface{}{
			"battery_id":  batteryID,
			"system_kind": kind,
		}).Error
}
