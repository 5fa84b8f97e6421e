package controllers

import (
	"net/http"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

// StatusesList serves the seeded status reference rows so the transport can
// render pickers and display names without hardcoding them.
func StatusesList(repo *store.Statuses, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := repo.All(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]statusView, 0, len(statuses))
		for _, status := range statuses {
			views = append(views, newStatusView(status))
		}
		responses.WriteSuccess(w, map[string]any{"statuses": views})
	}
}
