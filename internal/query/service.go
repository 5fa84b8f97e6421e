package query

import (
	"context"
	"fmt"

	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/pagination"
)

type ordersRepo interface {
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByUser(ctx context.Context, userID int64) ([]models.Order, error)
	List(ctx context.Context, filter store.OrderFilter, page pagination.Params) ([]models.Order, error)
	Count(ctx context.Context, filter store.OrderFilter) (int64, error)
	StatusCounts(ctx context.Context, orderType enums.OrderType) (map[enums.StatusCode]int64, error)
}

// Service is the read-only view over orders: filtered listings, per-user
// history, the staff statistics board and lookup by order number.
type Service struct {
	orders ordersRepo
}

// NewService builds the query layer over the orders repository.
func NewService(orders ordersRepo) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &Service{orders: orders}, nil
}

// ListParams carries the optional filters plus the page window.
type ListParams struct {
	Status     *enums.StatusCode
	OrderType  *enums.OrderType
	MaterialID *int64
	Page       pagination.Params
}

// ListResult is one page of orders with the matching total.
type ListResult struct {
	Orders []models.Order
	Total  int64
}

// List returns a page of orders and the total count for the same filter.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status").
			WithDetails(map[string]any{"status": *params.Status})
	}
	if params.OrderType != nil && !params.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").
			WithDetails(map[string]any{"order_type": *params.OrderType})
	}
	// The material filter is a work-queue tool and never digs through
	// history, so it only combines with active statuses.
	if params.MaterialID != nil && params.Status != nil && !params.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material filter applies to active orders only").
			WithDetails(map[string]any{"status": *params.Status})
	}

	filter := store.OrderFilter{
		Status:     params.Status,
		OrderType:  params.OrderType,
		MaterialID: params.MaterialID,
	}
	orders, err := s.orders.List(ctx, filter, params.Page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return &ListResult{Orders: orders, Total: total}, nil
}

// ListByUser returns a customer's order history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	return orders, nil
}

// FindByNumber resolves a single order by its number.
func (s *Service) FindByNumber(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if store.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// Statistics summarizes the working load for one order type. Archived orders
// are excluded; rejected ones never rest outside the archive, so the archive
// count is reported separately and the All total covers only the working
// statuses.
type Statistics struct {
	OrderType enums.OrderType            `json:"order_type"`
	ByStatus  map[enums.StatusCode]int64 `json:"by_status"`
	All       int64                      `json:"all"`
	Archived  int64                      `json:"archived"`
}

// Statistics aggregates per-status counts for an order type.
func (s *Service) Statistics(ctx context.Context, orderType enums.OrderType) (*Statistics, error) {
	if !orderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").
			WithDetails(map[string]any{"order_type": orderType})
	}

	counts, err := s.orders.StatusCounts(ctx, orderType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate order counts")
	}

	stats := &Statistics{
		OrderType: orderType,
		ByStatus:  make(map[enums.StatusCode]int64),
	}
	for _, code := range []enums.StatusCode{enums.StatusPending, enums.StatusInProgress, enums.StatusReady} {
		stats.ByStatus[code] = counts[code]
		stats.All += counts[code]
	}
	stats.Archived = counts[enums.StatusArchived]
	return stats, nil
}
