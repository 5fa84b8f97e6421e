package controllers

import (
	"net/http"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/api/validators"
	"github.com/fabworks/fabshop-backend/internal/notify"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

type broadcastRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// Broadcast fans an announcement out to every registered user and reports
// the sent/failed tally.
func Broadcast(broadcaster *notify.Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload broadcastRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tally, err := broadcaster.Broadcast(r.Context(), payload.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tally)
	}
}
