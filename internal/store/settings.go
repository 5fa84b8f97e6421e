package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settings persists process-wide flags so they survive restarts.
type Settings struct {
	db *gorm.DB
}

// NewSettings constructs a settings repo bound to the provided GORM DB.
func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

// GetBool reads a boolean flag, returning fallback when the row is missing
// or unparsable.
func (r *Settings) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	value, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// SetBool upserts a boolean flag.
func (r *Settings) SetBool(ctx context.Context, key string, value bool) error {
	setting := models.Setting{
		Key:   key,
		Value: strconv.FormatBool(value),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
}
