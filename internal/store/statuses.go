package store

import (
	"context"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	"gorm.io/gorm"
)

// Statuses reads the seeded status reference rows.
type Statuses struct {
	db *gorm.DB
}

// NewStatuses constructs a statuses repo bound to the provided GORM DB.
func NewStatuses(db *gorm.DB) *Statuses {
	return &Statuses{db: db}
}

// FindByCode loads the status row for a lifecycle code.
func (r *Statuses) FindByCode(ctx context.Context, code enums.StatusCode) (*models.Status, error) {
	var status models.Status
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// All returns every seeded status ordered by id.
func (r *Statuses) All(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
