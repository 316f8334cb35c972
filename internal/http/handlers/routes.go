package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	hmw "github.com/hygiapro/bookings/internal/http/middleware"
	mw "github.com/hygiapro/bookings/pkg/middleware"
)

// RouteOptions carries the stores behind the request guards. Nil stores
// disable the matching guard.
type RouteOptions struct {
	JWTSecret string
	// AdminEnabled mounts /v1/admin. Leave it off when no admin password
	// hash is configured.
	AdminEnabled   bool
	Idempotency    mw.IdempotencyStore
	IdempotencyTTL time.Duration
	RateCounter    hmw.Counter
	InitiateLimit  int
	ContactLimit   int
	RateWindow     time.Duration
}

// Mount registers the /v1 API on r.
func (h *Handlers) Mount(r chi.Router, opts RouteOptions) {
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	initiateLimit := hmw.NewRateLimiter(opts.RateCounter, hmw.RateLimitConfig{
		Name: "initiate", Requests: opts.InitiateLimit, Window: opts.RateWindow,
	}).Middleware()
	contactLimit := hmw.NewRateLimiter(opts.RateCounter, hmw.RateLimitConfig{
		Name: "contact", Requests: opts.ContactLimit, Window: opts.RateWindow,
	}).Middleware()

	idempotent := func(next http.Handler) http.Handler { return next }
	if opts.Idempotency != nil {
		idempotent = mw.IdempotencyMiddleware(opts.Idempotency, opts.IdempotencyTTL)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ListServices)
			r.Get("/{id}", h.GetService)
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", h.GetAvailability)
			r.Get("/check", h.CheckSlot)
			r.Get("/dates", h.BookableDates)
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(initiateLimit, idempotent).Post("/initialize", h.InitializePayment)
			r.Get("/verify/{reference}", h.VerifyPayment)
			r.Post("/webhook", h.PaymentWebhook)
			r.With(initiateLimit).Post("/{reference}/retry", h.RetryPayment)
		})
		r.With(initiateLimit, idempotent).Post("/checkout", h.Checkout)

		r.Get("/bookings/{reference}", h.GetBooking)

		r.With(contactLimit).Post("/contact", h.SubmitContact)

		if opts.AdminEnabled {
			r.Route("/admin", func(r chi.Router) {
				r.With(contactLimit).Post("/login", h.AdminLogin)
				r.With(hmw.RequireAdmin(opts.JWTSecret)).Get("/bookings", h.ListBookings)
			})
		}
	})
}
