package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/repo/postgres"
	"github.com/hygiapro/bookings/pkg/logger"
)

// AvailabilityService answers slot occupancy questions. Its answers are
// advisory; the store's unique index on (date, time) is what prevents
// double booking.
type AvailabilityService interface {
	ListBookedTimes(ctx context.Context, date string) ([]string, error)
	IsSlotAvailable(ctx context.Context, date, slot string) (bool, error)
	DaySlots(ctx context.Context, date string) ([]domain.SlotView, error)
}

type availabilityService struct {
	repo     postgres.BookingRepo
	schedule *domain.Schedule
}

func NewAvailabilityService(repo postgres.BookingRepo, schedule *domain.Schedule) AvailabilityService {
	return &availabilityService{repo: repo, schedule: schedule}
}

func (s *availabilityService) parseDate(date string) (time.Time, error) {
	d, err := s.schedule.ParseDate(date)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// ListBookedTimes never returns nil. On storage failure the result is empty
// and the error wraps ErrAvailabilityUnknown: callers must not read that as
// "everything is free".
func (s *availabilityService) ListBookedTimes(ctx context.Context, date string) ([]string, error) {
	d, err := s.parseDate(date)
	if err != nil {
		return []string{}, err
	}
	times, err := s.repo.ListBookedTimes(ctx, d)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list booked times", "date", date, "error", err)
		return []string{}, fmt.Errorf("%w: %w", domain.ErrAvailabilityUnknown, err)
	}
	if times == nil {
		times = []string{}
	}
	return times, nil
}

func (s *availabilityService) IsSlotAvailable(ctx context.Context, date, slot string) (bool, error) {
	d, err := s.parseDate(date)
	if err != nil {
		return false, err
	}
	if !domain.IsValidSlot(slot) {
		return false, domain.NewValidationError("time", "must be one of the available time slots")
	}
	taken, err := s.repo.IsSlotTaken(ctx, d, slot)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check slot", "date", date, "time", slot, "error", err)
		return false, fmt.Errorf("%w: %w", domain.ErrAvailabilityUnknown, err)
	}
	return !taken, nil
}

// DaySlots lists every slot of a bookable date with its availability.
func (s *availabilityService) DaySlots(ctx context.Context, date string) ([]domain.SlotView, error) {
	if err := s.schedule.CheckDate(date); err != nil {
		return nil, err
	}
	booked, err := s.ListBookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	views := make([]domain.SlotView, 0, len(domain.TimeSlots))
	for _, slot := range domain.TimeSlots {
		views = append(views, domain.SlotView{Slot: slot, Available: !taken[slot.Time]})
	}
	return views, nil
}
