package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/handlers"
	"github.com/hygiapro/bookings/internal/jobs"
	"github.com/hygiapro/bookings/internal/platform/mailer"
	"github.com/hygiapro/bookings/internal/platform/payment"
	"github.com/hygiapro/bookings/internal/repo/postgres"
	"github.com/hygiapro/bookings/internal/repo/redis"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/migrations"
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

	schedule, err := domain.NewSchedule(cfg.Schedule.ClosedDays, cfg.Schedule.HorizonDays, cfg.Schedule.Timezone)
	if err != nil {
		logger.Error("Invalid schedule configuration", "error", err)
		os.Exit(1)
	}

	// ctx is cancelled once the server has shut down; background work stops with it.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, pool, migrations.FS); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to event bus
	var eventBus events.EventBus
	if cfg.NATS.URL != "" {
		nb, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = nb
	} else {
		logger.Info("NATS_URL not set, using in-process event bus")
		eventBus = events.NewLocalEventBus()
	}
	defer eventBus.Close()

	// Redis backs the request guards only; without it they are disabled.
	routeOpts := handlers.RouteOptions{
		JWTSecret:      cfg.Auth.JWTSecret,
		AdminEnabled:   cfg.AdminEnabled(),
		IdempotencyTTL: cfg.Limits.IdempotencyTTL,
		InitiateLimit:  cfg.Limits.InitiatePerWindow,
		ContactLimit:   cfg.Limits.ContactPerWindow,
		RateWindow:     cfg.Limits.Window,
	}
	if cfg.Redis.URL != "" {
		rdb, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		routeOpts.Idempotency = redis.NewIdempotencyStore(rdb)
		routeOpts.RateCounter = redis.NewRateLimitStore(rdb)
	} else {
		logger.Warn("REDIS_URL not set, idempotency keys and rate limits are disabled")
	}

	primary, extra, err := buildGateways(cfg.Payment)
	if err != nil {
		logger.Error("Payment configuration invalid", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	bookingRepo := postgres.NewBookingRepo(pool)

	// Initialize services
	availabilityService := service.NewAvailabilityService(bookingRepo, schedule)
	bookingService := service.NewBookingService(bookingRepo, availabilityService, schedule, eventBus)
	paymentService := service.NewPaymentService(bookingService, primary, extra, eventBus, service.PaymentOptions{
		Currency:        cfg.Payment.Currency,
		MinorUnitFactor: cfg.Payment.MinorUnitFactor,
		CallbackURL:     cfg.Server.AppURL + "/booking/confirmation",
	})
	mailSvc := mailer.FromConfig(cfg.Email)
	contactService := service.NewContactService(mailSvc, cfg.Email.BusinessInbox)
	adminService := service.NewAdminService(cfg.Auth.AdminEmail, cfg.Auth.AdminHash, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	if err := service.NewNotificationService(bookingService, mailSvc).Start(ctx, eventBus); err != nil {
		logger.Error("Failed to subscribe notifier", "error", err)
		os.Exit(1)
	}

	scheduler, err := jobs.NewStaleReport(bookingService, cfg.Schedule.StalePendingAfter).
		Start(cfg.Schedule.StaleReportInterval, schedule.Location)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer func() { _ = scheduler.Shutdown() }()

	if !cfg.AdminEnabled() {
		logger.Info("AUTH_ADMIN_EMAIL or AUTH_ADMIN_PASSWORD_HASH not set, admin routes are not mounted")
	}

	// Initialize handlers
	h := handlers.New(handlers.Deps{
		Catalog:      catalog.NewFileProvider(cfg.Catalog.File),
		Availability: availabilityService,
		Bookings:     bookingService,
		Payments:     paymentService,
		Contact:      contactService,
		Admin:        adminService,
		Schedule:     schedule,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware
	if cfg.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.CORS(cfg.Server.CORSOrigins))

	h.Mount(r, routeOpts)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
		stop()
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port, "env", cfg.Env, "payment_provider", primary.Provider())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}

// buildGateways picks the processor that opens new sessions. Without a
// secret key the service refuses to start unless bypass was allowed
// explicitly. Bypass stays verifiable only while it is allowed.
func buildGateways(cfg config.PaymentConfig) (payment.Gateway, []payment.Gateway, error) {
	var extra []payment.Gateway
	if cfg.AllowBypass {
		extra = append(extra, payment.NewBypass())
	}
	if cfg.PaystackKey != "" {
		extra = append(extra, payment.NewPaystack(cfg.PaystackKey, cfg.PaystackBaseURL, cfg.Timeout))
	}
	if cfg.StripeKey != "" {
		extra = append(extra, payment.NewStripe(cfg.StripeKey, ""))
	}

	key := cfg.ProcessorKey()
	switch {
	case key != "" && cfg.Provider == "stripe":
		return payment.NewStripe(key, ""), extra, nil
	case key != "" && cfg.Provider == "paystack":
		return payment.NewPaystack(key, cfg.PaystackBaseURL, cfg.Timeout), extra, nil
	case key != "":
		return nil, nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.Provider)
	case cfg.AllowBypass:
		logger.Warn("No payment processor key configured: PAYMENT BYPASS MODE, bookings are confirmed without charge")
		return payment.NewBypass(), extra, nil
	default:
		return nil, nil, fmt.Errorf("no secret key for %s; set it or PAYMENT_ALLOW_BYPASS=true", cfg.Provider)
	}
}
