package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/internal/platform/payment"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/internal/session"
	"github.com/hygiapro/bookings/pkg/logger"
)

// InitializePayment stores the booking and opens a processor session.
func (h *Handlers) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.initiate(w, r, req)
}

// Checkout accepts the client-held session document, reprices it against the
// catalog and initiates payment for it.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	sess, err := session.Decode(raw)
	if err != nil {
		response.BadRequest(w, "Invalid booking session")
		return
	}
	if err := sess.Reprice(r.Context(), h.catalog); err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound), errors.Is(err, session.ErrInvalidPrice):
			response.BadRequest(w, "Your cart contains a service or price that is no longer offered")
		default:
			logger.ErrorContext(r.Context(), "Failed to reprice session", "error", err)
			response.InternalError(w, "Services are unavailable right now")
		}
		return
	}
	req, err := sess.PaymentRequest()
	if err != nil {
		response.BadRequest(w, "Booking is incomplete: "+err.Error())
		return
	}
	h.initiate(w, r, req)
}

func (h *Handlers) initiate(w http.ResponseWriter, r *http.Request, req domain.PaymentRequest) {
	sess, err := h.payments.Initiate(r.Context(), req)
	if err != nil {
		var startErr *service.PaymentStartError
		if errors.As(err, &startErr) {
			logger.ErrorContext(r.Context(), "Payment could not be started", "reference", startErr.Reference, "error", err)
			response.WriteErrorWithData(w, http.StatusBadGateway,
				"Your booking is saved but payment could not be started. Please retry payment.",
				response.CodePaymentProvider,
				map[string]string{"reference": startErr.Reference})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// RetryPayment opens a new session for a booking left pending.
func (h *Handlers) RetryPayment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	sess, err := h.payments.Resume(r.Context(), reference)
	if err != nil {
		var startErr *service.PaymentStartError
		if errors.As(err, &startErr) {
			response.WriteErrorWithData(w, http.StatusBadGateway,
				"Payment could not be started. Please try again.",
				response.CodePaymentProvider,
				map[string]string{"reference": startErr.Reference})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	v, err := h.payments.Verify(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	err = h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("X-Paystack-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, payment.ErrInvalidSignature):
		logger.WarnContext(r.Context(), "Webhook signature rejected")
		response.Unauthorized(w, "invalid signature")
	case errors.Is(err, service.ErrWebhookUnsupported):
		response.NotFound(w, "webhooks are not enabled")
	default:
		writeError(w, r, err)
	}
}
