package handlers

import (
	"errors"
	"net/http"

	"github.com/hygiapro/bookings/internal/domain"
	hmw "github.com/hygiapro/bookings/internal/http/middleware"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/internal/utils"
	"github.com/hygiapro/bookings/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	token, err := h.admin.Login(in.Email, in.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.WarnContext(r.Context(), "Admin login rejected")
		response.Unauthorized(w, "invalid email or password")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Admin login failed", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

// ListBookings is the read-only admin listing, newest first.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.BookingFilter{
		Date:   r.URL.Query().Get("date"),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("payment_status"); v != "" {
		ps, ok := domain.ParsePaymentStatus(v)
		if !ok {
			response.BadRequest(w, "payment_status must be pending, paid or failed")
			return
		}
		filter.PaymentStatus = &ps
	}

	bookings, err := h.bookings.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	admin := ""
	if c := hmw.Claims(r); c != nil {
		admin = c.Email
	}
	logger.InfoContext(r.Context(), "Admin listed bookings",
		"admin", utils.MaskEmail(admin), "count", len(bookings), "payment_status", r.URL.Query().Get("payment_status"))

	out := make([]domain.BookingDTO, 0, len(bookings))
	for i := range bookings {
		dto, err := toDTO(&bookings[i])
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to map booking", "error", err)
			response.InternalError(w, "Something went wrong")
			return
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": out,
		"limit":    limit,
		"offset":   offset,
	})
}
