package store

import (
	"context"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	"gorm.io/gorm"
)

// Templates manages the canned rejection texts staff pick from.
type Templates struct {
	db *gorm.DB
}

// NewTemplates constructs a rejection-template repo bound to the provided GORM DB.
func NewTemplates(db *gorm.DB) *Templates {
	return &Templates{db: db}
}

// Add inserts a template for the given order type.
func (r *Templates) Add(ctx context.Context, orderType enums.OrderType, text string) (*models.RejectionTemplate, error) {
	template := models.RejectionTemplate{
		OrderType: orderType,
		Text:      text,
	}
	if err := r.db.WithContext(ctx).Create(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// FindByID loads a single template.
func (r *Templates) FindByID(ctx context.Context, id int64) (*models.RejectionTemplate, error) {
	var template models.RejectionTemplate
	if err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// List returns the templates for an order type, oldest first.
func (r *Templates) List(ctx context.Context, orderType enums.OrderType) ([]models.RejectionTemplate, error) {
	var templates []models.RejectionTemplate
	err := r.db.WithContext(ctx).
		Where("order_type = ?", orderType).
		Order("created_at ASC").
		Order("id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Delete removes a template permanently; templates carry no historical
// references so hard deletion is safe.
func (r *Templates) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.RejectionTemplate{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
