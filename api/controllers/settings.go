package controllers

import (
	"net/http"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/api/validators"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

// IntakeGet reports whether new orders are being accepted.
func IntakeGet(repo *store.Settings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accepting, err := repo.GetBool(r.Context(), models.SettingAcceptingOrders, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read intake flag"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"accepting_orders": accepting})
	}
}

type intakeUpdateRequest struct {
	AcceptingOrders *bool `json:"accepting_orders" validate:"required"`
}

// IntakeUpdate toggles order acceptance. The flag is persisted so it survives
// restarts.
func IntakeUpdate(repo *store.Settings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload intakeUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.SetBool(r.Context(), models.SettingAcceptingOrders, *payload.AcceptingOrders); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist intake flag"))
			return
		}

		logCtx := logg.WithField(r.Context(), "accepting_orders", *payload.AcceptingOrders)
		logg.Info(logCtx, "order intake flag updated")
		responses.WriteSuccess(w, map[string]any{"accepting_orders": *payload.AcceptingOrders})
	}
}
