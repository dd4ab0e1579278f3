package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/ports"
)

type BatteryRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBatteryRepository(db *gorm.DB, log *zap.Logger) ports.BatteryRepository {
	return &BatteryRepository{
		db:  db,
		log: log,
	}
}

func (r *BatteryRepository) Save(ctx context.Context, battery *domain.BatteryConfig) error {
	return r.db.WithContext(ctx).Save(battery).Error
}

func (r *BatteryRepository) FindByID(ctx context.Context, id int64) (*domain.BatteryConfig, error) {
	var battery domain.BatteryConfig
	err := r.db.WithContext(ctx).First(&battery, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &battery, nil
}

func (r *BatteryRepository) FindBySystemID(ctx context.Context, systemID int64) (*domain.BatteryConfig, error) {
	var battery domain.BatteryConfig
	err := r.db.WithContext(ctx).First(&battery, "system_id = ?", systemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &battery, nil
}

func (r *BatteryRepository) UpdateChargePercentage(ctx context.Context, id int64, percentage float64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.BatteryConfig{}).
		Where("id = ?", id).
		Update("current_charge_percentage", percentage)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrBatteryNotFound
	}
	return nil
}

func (r *BatteryRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.BatteryConfig{}, "id = ?", id).Error
}
