package controllers

import (
	"net/http"
	"time"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/api/validators"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

type userRegisterRequest struct {
	ID        int64   `json:"id" validate:"required"`
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name" validate:"max=100"`
	Handle    *string `json:"handle,omitempty" validate:"omitempty,max=100"`
}

// UsersRegister records a chat identity on first contact. The operation is
// idempotent; a changed handle is refreshed in place.
func UsersRegister(repo *store.Users, logg *logger.Logger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload userRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, created, err := repo.GetOrCreate(r.Context(), payload.ID, payload.FirstName, payload.LastName, payload.Handle)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if created {
			logCtx := logg.WithUserID(r.Context(), user.ID)
			logg.Info(logCtx, "user registered")
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"user":    newUserView(*user, loc),
			"created": created,
		})
	}
}
