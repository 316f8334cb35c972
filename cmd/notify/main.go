// Command notify sends booking confirmations for payment.paid events. It
// joins the API's "notify" queue group, so each event is handled once no
// matter how many notifiers run.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/platform/mailer"
	"github.com/hygiapro/bookings/internal/repo/postgres"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/pkg/config"
	"github.com/hygiapro/bookings/pkg/database"
	"github.com/hygiapro/bookings/pkg/events"
	"github.com/hygiapro/bookings/pkg/logger"
	mw "github.com/hygiapro/bookings/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetDefault(logger.New(cfg.Env, os.Getenv("LOG_LEVEL")))
	defer logger.Sync()

	if cfg.NATS.URL == "" {
		logger.Error("NATS_URL is required for the standalone notifier")
		os.Exit(1)
	}

	schedule, err := domain.NewSchedule(cfg.Schedule.ClosedDays, cfg.Schedule.HorizonDays, cfg.Schedule.Timezone)
	if err != nil {
		logger.Error("Invalid schedule configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	repo := postgres.NewBookingRepo(pool)
	bookings := service.NewBookingService(repo, service.NewAvailabilityService(repo, schedule), schedule, eventBus)
	if err := service.NewNotificationService(bookings, mailer.FromConfig(cfg.Email)).Start(ctx, eventBus); err != nil {
		logger.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Health)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.NotifyPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
		stop()
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
