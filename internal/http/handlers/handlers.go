package handlers

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/pkg/logger"
	"github.com/jinzhu/copier"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	catalog      catalog.Provider
	availability service.AvailabilityService
	bookings     service.BookingService
	payments     service.PaymentService
	contact      service.ContactService
	admin        service.AdminService
	schedule     *domain.Schedule
}

type Deps struct {
	Catalog      catalog.Provider
	Availability service.AvailabilityService
	Bookings     service.BookingService
	Payments     service.PaymentService
	Contact      service.ContactService
	Admin        service.AdminService
	Schedule     *domain.Schedule
}

func New(d Deps) *Handlers {
	return &Handlers{
		catalog:      d.Catalog,
		availability: d.Availability,
		bookings:     d.Bookings,
		payments:     d.Payments,
		contact:      d.Contact,
		admin:        d.Admin,
		schedule:     d.Schedule,
	}
}

// Helper functions for common response patterns
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response.OK(w, statusCode, data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, _ := response.Classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	response.FromError(w, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.DebugContext(r.Context(), "Invalid request body", "error", err)
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func toDTO(b *domain.Booking) (domain.BookingDTO, error) {
	var dto domain.BookingDTO
	if err := copier.Copy(&dto, b); err != nil {
		return dto, err
	}
	dto.Unpaid = b.PaymentProvider == domain.ProviderBypass
	return dto, nil
}
