package store

import (
	"context"
	"time"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	"github.com/fabworks/fabshop-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Orders is the persistence surface for the order lifecycle. Every method
// binds its own context; multi-statement mutations run on a transaction
// handle obtained through WithTx.
type Orders struct {
	db *gorm.DB
}

// NewOrders constructs an orders repo bound to the provided GORM DB.
func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Orders) WithTx(tx *gorm.DB) *Orders {
	if tx == nil {
		return r
	}
	return &Orders{db: tx}
}

// CreateOrderParams carries the customer submission. Status is not a
// parameter: new orders always start pending.
type CreateOrderParams struct {
	UserID           int64
	MaterialID       *int64
	OrderType        enums.OrderType
	PartName         string
	Comment          *string
	PhotoPath        *string
	ModelPath        *string
	OriginalFilename string
}

// Create inserts a new order in the pending status.
func (r *Orders) Create(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	var pending models.Status
	if err := r.db.WithContext(ctx).Where("code = ?", enums.StatusPending).First(&pending).Error; err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:           params.UserID,
		StatusID:         pending.ID,
		MaterialID:       params.MaterialID,
		OrderType:        params.OrderType,
		PartName:         params.PartName,
		Comment:          params.Comment,
		PhotoPath:        params.PhotoPath,
		ModelPath:        params.ModelPath,
		OriginalFilename: params.OriginalFilename,
	}
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID loads an order with its user, status and material.
func (r *Orders) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Status").
		Preload("Material").
		First(&order, "orders.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUser returns a customer's orders, newest first.
func (r *Orders) FindByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Status").
		Preload("Material").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderFilter scopes listing and counting queries. The material filter only
// applies inside the active-status allowlist: staff filter by material to
// plan the work queue, not to dig through history.
type OrderFilter struct {
	Status     *enums.StatusCode
	OrderType  *enums.OrderType
	MaterialID *int64
}

// ConfinedToActive reports whether the filter restricts results to
// {pending, in_progress}, which flips the sort to FIFO.
func (f OrderFilter) ConfinedToActive() bool {
	if f.Status != nil {
		return f.Status.IsActive()
	}
	return f.MaterialID != nil
}

// List returns one limit/offset page matching the filter. Active-status
// windows sort oldest-first so staff work FIFO; everything else newest-first.
func (r *Orders) List(ctx context.Context, filter OrderFilter, page pagination.Params) ([]models.Order, error) {
	page = page.Normalize()

	direction := "DESC"
	if filter.ConfinedToActive() {
		direction = "ASC"
	}

	var orders []models.Order
	err := r.filtered(ctx, filter).
		Preload("User").
		Preload("Status").
		Preload("Material").
		Order("orders.created_at " + direction).
		Order("orders.id " + direction).
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Count mirrors List without the window.
func (r *Orders) Count(ctx context.Context, filter OrderFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).
		Model(&models.Order{}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Orders) filtered(ctx context.Context, filter OrderFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN statuses ON statuses.id = orders.status_id")

	switch {
	case filter.Status != nil:
		query = query.Where("statuses.code = ?", *filter.Status)
	case filter.MaterialID != nil:
		query = query.Where("statuses.code IN ?", statusCodeStrings(enums.ActiveStatusCodes))
	}
	if filter.MaterialID != nil {
		query = query.Where("orders.material_id = ?", *filter.MaterialID)
	}
	if filter.OrderType != nil {
		query = query.Where("orders.order_type = ?", *filter.OrderType)
	}
	return query
}

// UpdateStatus applies a status change and the reason-clearing rule: the
// rejection reason survives only rejected/archived targets. Returns false
// only when the status code has no seeded row; a missing order id still
// reports true and callers re-fetch to confirm.
func (r *Orders) UpdateStatus(ctx context.Context, id int64, code enums.StatusCode, reason *string) (bool, error) {
	var status models.Status
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&status).Error
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{"status_id": status.ID}
	switch code {
	case enums.StatusRejected, enums.StatusArchived:
		if reason != nil {
			updates["rejection_reason"] = *reason
		}
	default:
		updates["rejection_reason"] = nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// Archived returns every archived order newest-first by creation time.
// The retention sweep slices off everything beyond the ceiling.
func (r *Orders) Archived(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Joins("JOIN statuses ON statuses.id = orders.status_id").
		Where("statuses.code = ?", enums.StatusArchived).
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Delete permanently removes an order row. Only the retention sweep calls
// this; regular lifecycle transitions never delete.
func (r *Orders) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error
}

// ReadyForReminder returns ready orders whose last reminder is missing or
// older than the cutoff, oldest first, with owners preloaded.
func (r *Orders) ReadyForReminder(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Status").
		Joins("JOIN statuses ON statuses.id = orders.status_id").
		Where("statuses.code = ?", enums.StatusReady).
		Where("orders.last_reminder_at IS NULL OR orders.last_reminder_at < ?", cutoff).
		Order("orders.created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// StampReminder records that a reminder went out for the order.
func (r *Orders) StampReminder(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("last_reminder_at", at).Error
}

// StatusCounts aggregates order counts per status code for an order type.
func (r *Orders) StatusCounts(ctx context.Context, orderType enums.OrderType) (map[enums.StatusCode]int64, error) {
	type row struct {
		Code  string
		Total int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("statuses.code AS code, COUNT(*) AS total").
		Joins("JOIN statuses ON statuses.id = orders.status_id").
		Where("orders.order_type = ?", orderType).
		Group("statuses.code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.StatusCode]int64, len(rows))
	for _, r := range rows {
		counts[enums.StatusCode(r.Code)] = r.Total
	}
	return counts, nil
}

func statusCodeStrings(codes []enums.StatusCode) []string {
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = string(code)
	}
	return out
}
