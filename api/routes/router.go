package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabworks/fabshop-backend/api/controllers"
	"github.com/fabworks/fabshop-backend/api/middleware"
	"github.com/fabworks/fabshop-backend/internal/lifecycle"
	"github.com/fabworks/fabshop-backend/internal/notify"
	"github.com/fabworks/fabshop-backend/internal/query"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/config"
	"github.com/fabworks/fabshop-backend/pkg/db"
	"github.com/fabworks/fabshop-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Lifecycle   *lifecycle.Service
	Query       *query.Service
	Broadcaster *notify.Broadcaster
	Users       *store.Users
	Materials   *store.Materials
	Templates   *store.Templates
	Settings    *store.Settings
	Statuses    *store.Statuses
}

// NewRouter assembles the chi router with the standard middleware chain. The
// transport process talks to these routes; everything under /api/v1 requires
// the staff token except the customer-attributed order endpoints the
// transport itself mediates.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	loc := p.Config.Display.Location()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.StaffAuth(p.Config.Staff.APIToken, p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersCreate(p.Lifecycle, p.Logger, loc))
			r.Get("/", controllers.OrdersList(p.Query, p.Logger, loc))
			r.Get("/stats", controllers.OrdersStats(p.Query, p.Logger))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.OrdersDetail(p.Query, p.Logger, loc))
				r.Put("/status", controllers.OrdersChangeStatus(p.Lifecycle, p.Logger, loc))
				r.Post("/reject", controllers.OrdersReject(p.Lifecycle, p.Logger, loc))
				r.Post("/pickup", controllers.OrdersPickup(p.Lifecycle, p.Config.Staff, p.Logger, loc))
				r.Get("/model", controllers.OrdersModelDownload(p.Query, p.Logger))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.UsersRegister(p.Users, p.Logger, loc))
			r.Get("/{userID}/orders", controllers.UsersOrders(p.Query, p.Logger, loc))
		})

		r.Get("/statuses", controllers.StatusesList(p.Statuses, p.Logger))

		r.Route("/materials", func(r chi.Router) {
			r.Get("/", controllers.MaterialsList(p.Materials, p.Logger))
			r.Post("/", controllers.MaterialsAdd(p.Materials, p.Logger))
			r.Post("/{materialID}/disable", controllers.MaterialsDisable(p.Materials, p.Logger))
			r.Post("/{materialID}/restore", controllers.MaterialsRestore(p.Materials, p.Logger))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", controllers.TemplatesList(p.Templates, p.Logger))
			r.Post("/", controllers.TemplatesAdd(p.Templates, p.Logger))
			r.Delete("/{templateID}", controllers.TemplatesDelete(p.Templates, p.Logger))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/intake", controllers.IntakeGet(p.Settings, p.Logger))
			r.Put("/intake", controllers.IntakeUpdate(p.Settings, p.Logger))
		})

		r.Post("/broadcast", controllers.Broadcast(p.Broadcaster, p.Logger))
	})

	return r
}
