package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/api/validators"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

// MaterialsList serves the material catalog for one order type. Staff pass
// include_disabled to see soft-deleted rows.
func MaterialsList(repo *store.Materials, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("order_type")
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").WithDetails(map[string]any{"order_type": raw}))
			return
		}

		includeDisabled, err := validators.ParseQueryBool(r, "include_disabled", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		materials, err := repo.List(r.Context(), orderType, includeDisabled)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]materialView, 0, len(materials))
		for _, material := range materials {
			views = append(views, newMaterialView(material))
		}
		responses.WriteSuccess(w, map[string]any{"materials": views})
	}
}

type materialAddRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	OrderType string `json:"order_type" validate:"required,oneof=print laser_cut"`
}

// MaterialsAdd inserts a new material for an order type.
func MaterialsAdd(repo *store.Materials, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload materialAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		material, err := repo.Add(r.Context(), payload.Name, enums.OrderType(payload.OrderType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newMaterialView(*material))
	}
}

// MaterialsDisable soft-deletes a material.
func MaterialsDisable(repo *store.Materials, logg *logger.Logger) http.HandlerFunc {
	return materialAvailability(repo, logg, false)
}

// MaterialsRestore brings a disabled material back.
func MaterialsRestore(repo *store.Materials, logg *logger.Logger) http.HandlerFunc {
	return materialAvailability(repo, logg, true)
}

func materialAvailability(repo *store.Materials, logg *logger.Logger, available bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "materialID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "material id must be a positive number"))
			return
		}

		var found bool
		if available {
			found, err = repo.Restore(r.Context(), id)
		} else {
			found, err = repo.Disable(r.Context(), id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "material not found").WithDetails(map[string]any{"material_id": id}))
			return
		}

		material, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMaterialView(*material))
	}
}
