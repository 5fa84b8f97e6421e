package controllers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/api/validators"
	"github.com/fabworks/fabshop-backend/internal/lifecycle"
	"github.com/fabworks/fabshop-backend/internal/query"
	"github.com/fabworks/fabshop-backend/pkg/config"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/fabworks/fabshop-backend/pkg/pagination"
)

type orderCreateRequest struct {
	UserID           int64   `json:"user_id" validate:"required"`
	OrderType        string  `json:"order_type" validate:"required,oneof=print laser_cut"`
	MaterialID       *int64  `json:"material_id,omitempty"`
	PartName         string  `json:"part_name" validate:"required,min=1,max=200"`
	Comment          *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
	PhotoPath        *string `json:"photo_path,omitempty"`
	ModelPath        *string `json:"model_path,omitempty"`
	OriginalFilename string  `json:"original_filename" validate:"required"`
}

// OrdersCreate accepts a new customer submission after the transport has
// collected the upload.
func OrdersCreate(svc *lifecycle.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orderCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), lifecycle.CreateOrderInput{
			UserID:           payload.UserID,
			OrderType:        enums.OrderType(payload.OrderType),
			MaterialID:       payload.MaterialID,
			PartName:         payload.PartName,
			Comment:          payload.Comment,
			PhotoPath:        payload.PhotoPath,
			ModelPath:        payload.ModelPath,
			OriginalFilename: payload.OriginalFilename,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(*order, loc))
	}
}

// OrdersList serves the staff listing with optional status, type and material
// filters plus a limit/offset window.
func OrdersList(svc *query.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := query.ListParams{}

		if raw := r.URL.Query().Get("status"); raw != "" {
			code, err := enums.ParseStatusCode(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown status").WithDetails(map[string]any{"status": raw}))
				return
			}
			params.Status = &code
		}
		if raw := r.URL.Query().Get("order_type"); raw != "" {
			orderType, err := enums.ParseOrderType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").WithDetails(map[string]any{"order_type": raw}))
				return
			}
			params.OrderType = &orderType
		}

		materialID, err := validators.ParseQueryInt64(r, "material_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.MaterialID = materialID

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Page = pagination.Params{Limit: limit, Offset: offset}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders": newOrderViews(result.Orders, loc),
			"total":  result.Total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// OrdersDetail serves the find-order-by-number lookup.
func OrdersDetail(svc *query.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FindByNumber(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(*order, loc))
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrdersChangeStatus applies one of the staff working transitions.
func OrdersChangeStatus(svc *lifecycle.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ChangeStatus(r.Context(), id, enums.StatusCode(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(*order, loc))
	}
}

type orderRejectRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000"`
}

// OrdersReject refuses an order with a reason and archives it.
func OrdersReject(svc *lifecycle.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Reject(r.Context(), id, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(*order, loc))
	}
}

type orderPickupRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
	Staff   bool  `json:"staff"`
}

// OrdersPickup closes out a ready order on behalf of staff or the customer.
// Actors on the configured admin list get staff attribution even when the
// transport does not flag them.
func OrdersPickup(svc *lifecycle.Service, staff config.StaffConfig, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderPickupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Pickup(r.Context(), id, lifecycle.Actor{
			UserID: payload.ActorID,
			Staff:  payload.Staff || staff.IsAdmin(payload.ActorID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(*order, loc))
	}
}

// OrdersStats serves the per-status workload board for one order type.
func OrdersStats(svc *query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("order_type")
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").WithDetails(map[string]any{"order_type": raw}))
			return
		}

		stats, err := svc.Statistics(r.Context(), orderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// OrdersModelDownload streams the stored model file under the composed staff
// filename.
func OrdersModelDownload(svc *query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.FindByNumber(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.ModelPath == nil || *order.ModelPath == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "order has no model file"))
			return
		}

		file, err := os.Open(*order.ModelPath)
		if err != nil {
			if os.IsNotExist(err) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeNotFound, "model file missing from storage"))
				return
			}
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open model file"))
			return
		}
		defer file.Close()

		filename := lifecycle.DownloadFilename(order)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, filename, order.CreatedAt, file)
	}
}

// UsersOrders lists a customer's order history, newest first.
func UsersOrders(svc *query.Service, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "userID")
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "user id must be numeric"))
			return
		}

		orders, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders": newOrderViews(orders, loc),
		})
	}
}

func orderIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a positive number")
	}
	return id, nil
}
