package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabworks/fabshop-backend/api/routes"
	"github.com/fabworks/fabshop-backend/internal/lifecycle"
	"github.com/fabworks/fabshop-backend/internal/notify"
	"github.com/fabworks/fabshop-backend/internal/query"
	"github.com/fabworks/fabshop-backend/internal/sched"
	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/config"
	"github.com/fabworks/fabshop-backend/pkg/db"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/fabworks/fabshop-backend/pkg/metrics"
	"github.com/fabworks/fabshop-backend/pkg/migrate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	for _, dir := range []string{cfg.Files.PhotosDir, cfg.Files.ModelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logg.Error(context.Background(), "failed to create upload directory", err)
			os.Exit(1)
		}
	}

	orders := store.NewOrders(dbClient.DB())
	users := store.NewUsers(dbClient.DB())
	materials := store.NewMaterials(dbClient.DB())
	templates := store.NewTemplates(dbClient.DB())
	settings := store.NewSettings(dbClient.DB())
	statuses := store.NewStatuses(dbClient.DB())

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	var sender notify.Sender
	if cfg.Transport.WebhookURL != "" {
		sender, err = notify.NewWebhookSender(cfg.Transport.WebhookURL, cfg.Transport.Timeout)
		if err != nil {
			logg.Error(context.Background(), "failed to create transport sender", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "transport webhook not configured, notifications are log-only")
		sender = notify.NewLogSender(logg)
	}

	dispatcher, err := notify.NewDispatcher(notify.DispatcherParams{
		Logger:   logg,
		Sender:   sender,
		Statuses: statuses,
		Metrics:  deliveryMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	broadcaster, err := notify.NewBroadcaster(notify.BroadcasterParams{
		Logger:         logg,
		Sender:         sender,
		Users:          users,
		Metrics:        deliveryMetrics,
		MessageDelay:   cfg.Broadcast.MessageDelay,
		RateLimitPause: cfg.Broadcast.RateLimitPause,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create broadcaster", err)
		os.Exit(1)
	}

	lifecycleService, err := lifecycle.NewService(lifecycle.ServiceParams{
		Logger:         logg,
		DB:             dbClient,
		Orders:         orders,
		Materials:      materials,
		Settings:       settings,
		Notifier:       dispatcher,
		Extensions:     cfg.Files,
		ArchiveMaxSize: cfg.Archive.MaxSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle service", err)
		os.Exit(1)
	}

	queryService, err := query.NewService(orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create query service", err)
		os.Exit(1)
	}

	reminderJob, err := notify.NewReminderJob(notify.ReminderJobParams{
		Logger:     logg,
		Orders:     orders,
		Dispatcher: dispatcher,
		Interval:   cfg.Reminder.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}

	scheduler, err := sched.NewService(sched.ServiceParams{
		Logger:       logg,
		Registry:     sched.NewRegistry(reminderJob),
		Metrics:      jobMetrics,
		Interval:     cfg.Reminder.Interval,
		InitialDelay: cfg.Reminder.InitialDelay,
		ErrorBackoff: cfg.Reminder.ErrorBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Lifecycle:   lifecycleService,
			Query:       queryService,
			Broadcaster: broadcaster,
			Users:       users,
			Materials:   materials,
			Templates:   templates,
			Settings:    settings,
			Statuses:    statuses,
		}),
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- scheduler.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	logg.Info(ctx, "starting api server")

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error shutting down api server", err)
	}

	// Let the running sweep finish before closing the database.
	if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler stopped unexpectedly", err)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
