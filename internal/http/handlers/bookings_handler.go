package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/pkg/logger"
)

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.FindByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dto, err := toDTO(b)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to map booking", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}
