package controllers

import (
	"net/http"

	"github.com/fabworks/fabshop-backend/api/responses"
	"github.com/fabworks/fabshop-backend/pkg/config"
	"github.com/fabworks/fabshop-backend/pkg/db"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness by pinging the database.
func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if database == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "database not wired"))
			return
		}
		if err := database.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
		})
	}
}
