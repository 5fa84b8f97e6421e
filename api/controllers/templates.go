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

// TemplatesList serves the canned rejection texts for one order type.
func TemplatesList(repo *store.Templates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("order_type")
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").WithDetails(map[string]any{"order_type": raw}))
			return
		}

		templates, err := repo.List(r.Context(), orderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]templateView, 0, len(templates))
		for _, template := range templates {
			views = append(views, newTemplateView(template))
		}
		responses.WriteSuccess(w, map[string]any{"templates": views})
	}
}

type templateAddRequest struct {
	OrderType string `json:"order_type" validate:"required,oneof=print laser_cut"`
	Text      string `json:"text" validate:"required,min=1,max=1000"`
}

// TemplatesAdd inserts a new rejection template.
func TemplatesAdd(repo *store.Templates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload templateAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		template, err := repo.Add(r.Context(), enums.OrderType(payload.OrderType), payload.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newTemplateView(*template))
	}
}

// TemplatesDelete removes a rejection template.
func TemplatesDelete(repo *store.Templates, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "templateID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "template id must be a positive number"))
			return
		}

		found, err := repo.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "template not found").WithDetails(map[string]any{"template_id": id}))
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
