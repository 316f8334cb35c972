package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/pkg/logger"
)

func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.List(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load catalog", "error", err)
		response.InternalError(w, "Services are unavailable right now")
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *Handlers) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrServiceNotFound) {
		response.NotFound(w, "Service not found")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load catalog", "error", err)
		response.InternalError(w, "Services are unavailable right now")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
