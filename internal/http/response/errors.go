package response

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/pkg/logger"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeRateLimit             = "RATE_LIMIT_EXCEEDED"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeExpiredToken          = "EXPIRED_TOKEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeSlotTaken             = "SLOT_TAKEN"
	CodeDuplicateReference    = "DUPLICATE_REFERENCE"
	CodePaymentProvider       = "PAYMENT_PROVIDER_ERROR"
	CodeAvailabilityUnknown   = "AVAILABILITY_UNKNOWN"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	CodePaymentAlreadySettled = "PAYMENT_ALREADY_SETTLED"
)

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// OK writes a successful envelope around data.
func OK(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	WriteJSON(w, statusCode, Envelope{Message: message, Code: code})
}

// WriteErrorWithData writes an error envelope that still carries data, e.g.
// the reference of a booking whose payment could not be started.
func WriteErrorWithData(w http.ResponseWriter, statusCode int, message, code string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{Message: message, Code: code, Data: data})
}

// FromError maps the domain error taxonomy onto a status and a client-safe
// message. Raw error text never reaches the client.
func FromError(w http.ResponseWriter, err error) {
	status, code, message := Classify(err)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteJSON(w, status, Envelope{Message: message, Code: code, Fields: ve.Fields})
		return
	}
	WriteError(w, status, message, code)
}

// Classify returns the HTTP status, code and message for err.
func Classify(err error) (int, string, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, CodeInvalidInput, "Please check the highlighted fields"
	case errors.Is(err, domain.ErrSlotTaken):
		return http.StatusConflict, CodeSlotTaken, "This time slot was just booked. Please go back and choose another time."
	case errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict, CodeDuplicateReference, "A booking with this reference already exists"
	case errors.Is(err, domain.ErrPaymentStatusConflict):
		return http.StatusConflict, CodePaymentAlreadySettled, "This payment has already been settled"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "Booking not found"
	case errors.Is(err, domain.ErrPaymentProvider):
		return http.StatusBadGateway, CodePaymentProvider, "The payment provider could not be reached. Please try again."
	case errors.Is(err, domain.ErrAvailabilityUnknown):
		return http.StatusServiceUnavailable, CodeAvailabilityUnknown, "Availability could not be checked. Please try again later."
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable, CodeStorageUnavailable, "Service temporarily unavailable. Please try again later."
	default:
		return http.StatusInternalServerError, CodeInternalError, "Something went wrong"
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
