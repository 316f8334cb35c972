package handlers

import (
	"net/http"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/response"
)

type dayAvailability struct {
	Date        string            `json:"date"`
	Slots       []domain.SlotView `json:"slots"`
	BookedTimes []string          `json:"booked_times"`
}

// GetAvailability lists every slot of ?date= with its state.
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date is required")
		return
	}

	slots, err := h.availability.DaySlots(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	booked := []string{}
	for _, s := range slots {
		if !s.Available {
			booked = append(booked, s.Time)
		}
	}
	writeJSON(w, http.StatusOK, dayAvailability{Date: date, Slots: slots, BookedTimes: booked})
}

func (h *Handlers) CheckSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, slot := q.Get("date"), q.Get("time")
	if date == "" || slot == "" {
		response.BadRequest(w, "date and time are required")
		return
	}

	ok, err := h.availability.IsSlotAvailable(r.Context(), date, slot)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":      date,
		"time":      slot,
		"available": ok,
	})
}

func (h *Handlers) BookableDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dates": h.schedule.BookableDates(),
		"slots": domain.TimeSlots,
	})
}
