package handlers

import (
	"net/http"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/response"
)

func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var msg domain.ContactMessage
	if !decodeJSON(w, r, &msg) {
		return
	}
	if err := h.contact.Submit(r.Context(), msg); err != nil {
		writeError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, response.Envelope{
		Success: true,
		Message: "Thanks for reaching out. We will get back to you shortly.",
	})
}
