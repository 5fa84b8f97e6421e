package store

import (
	"context"
	"errors"

	"github.com/fabworks/fabshop-backend/pkg/db"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"gorm.io/gorm"
)

// Materials manages the typed consumable catalog. Rows referenced by
// historical orders are never removed, only flagged unavailable.
type Materials struct {
	db *gorm.DB
}

// NewMaterials constructs a materials repo bound to the provided GORM DB.
func NewMaterials(db *gorm.DB) *Materials {
	return &Materials{db: db}
}

// Add inserts a material. A duplicate (name, type) pair reports a conflict
// instead of surfacing the constraint error.
func (r *Materials) Add(ctx context.Context, name string, orderType enums.OrderType) (*models.Material, error) {
	material := models.Material{
		Name:      name,
		OrderType: orderType,
		Available: true,
	}
	if err := r.db.WithContext(ctx).Create(&material).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "material already exists").
				WithDetails(map[string]any{"name": name, "order_type": orderType})
		}
		return nil, err
	}
	return &material, nil
}

// FindByID loads a material regardless of availability.
func (r *Materials) FindByID(ctx context.Context, id int64) (*models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

// FindByName resolves a material by its (name, type) key.
func (r *Materials) FindByName(ctx context.Context, name string, orderType enums.OrderType) (*models.Material, error) {
	var material models.Material
	err := r.db.WithContext(ctx).
		Where("name = ? AND order_type = ?", name, orderType).
		First(&material).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// List returns materials for an order type sorted by name. Disabled rows are
// excluded unless includeDisabled is set (staff management view).
func (r *Materials) List(ctx context.Context, orderType enums.OrderType, includeDisabled bool) ([]models.Material, error) {
	query := r.db.WithContext(ctx).Where("order_type = ?", orderType)
	if !includeDisabled {
		query = query.Where("available = ?", true)
	}
	var materials []models.Material
	if err := query.Order("name ASC").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// Disable soft-deletes a material so new orders stop offering it.
func (r *Materials) Disable(ctx context.Context, id int64) (bool, error) {
	return r.setAvailable(ctx, id, false)
}

// Restore brings a disabled material back into the picker.
func (r *Materials) Restore(ctx context.Context, id int64) (bool, error) {
	return r.setAvailable(ctx, id, true)
}

func (r *Materials) setAvailable(ctx context.Context, id int64, available bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Material{}).
		Where("id = ?", id).
		UpdateColumn("available", available)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IsNotFound reports whether the error is the GORM missing-row sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
