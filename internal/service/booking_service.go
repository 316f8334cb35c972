package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/repo/postgres"
	"github.com/hygiapro/bookings/internal/utils"
	"github.com/hygiapro/bookings/pkg/events"
	"github.com/hygiapro/bookings/pkg/logger"
)

type BookingService interface {
	Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error)
	UpdatePaymentStatus(ctx context.Context, reference string, status domain.PaymentStatus) error
	SetPaymentSession(ctx context.Context, reference, sessionID string) error
	FindByReference(ctx context.Context, reference string) (*domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	CountStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

type bookingService struct {
	repo         postgres.BookingRepo
	availability AvailabilityService
	schedule     *domain.Schedule
	eventBus     events.Publisher
}

func NewBookingService(
	repo postgres.BookingRepo,
	availability AvailabilityService,
	schedule *domain.Schedule,
	eventBus events.Publisher,
) BookingService {
	return &bookingService{
		repo:         repo,
		availability: availability,
		schedule:     schedule,
		eventBus:     eventBus,
	}
}

// Create validates the input, re-checks the slot and inserts a pending,
// confirmed booking. A slot lost between the check and the insert is still
// reported as ErrSlotTaken because the store enforces it.
func (s *bookingService) Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error) {
	in.Normalize()
	if err := domain.Validate(in.BookingInput); err != nil {
		return nil, err
	}
	if err := s.schedule.CheckDate(in.BookingDate); err != nil {
		return nil, err
	}
	if in.Reference == "" {
		return nil, domain.NewValidationError("reference", "is required")
	}
	if in.Provider == "" {
		in.Provider = domain.ProviderPaystack
	}

	available, err := s.availability.IsSlotAvailable(ctx, in.BookingDate, in.BookingTime)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !available {
		return nil, domain.ErrSlotTaken
	}

	booking, err := s.repo.Create(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			logger.InfoContext(ctx, "Slot claimed concurrently", "date", in.BookingDate, "time", in.BookingTime)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	logger.InfoContext(ctx, "Booking created",
		"reference", booking.Reference,
		"date", booking.BookingDate,
		"time", booking.BookingTime,
		"customer", utils.MaskEmail(booking.CustomerEmail),
		"provider", booking.PaymentProvider,
	)

	event := events.BookingCreatedEvent{
		BookingID:     booking.ID,
		Reference:     booking.Reference,
		CustomerEmail: booking.CustomerEmail,
		BookingDate:   booking.BookingDate,
		BookingTime:   booking.BookingTime,
		TotalAmount:   booking.TotalAmount,
		CreatedAt:     booking.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "reference", booking.Reference)
	}

	return booking, nil
}

// UpdatePaymentStatus allows pending -> paid and pending -> failed. Setting
// the current status again succeeds without change.
func (s *bookingService) UpdatePaymentStatus(ctx context.Context, reference string, status domain.PaymentStatus) error {
	if status != domain.PaymentPaid && status != domain.PaymentFailed {
		return domain.NewValidationError("payment_status", "must be paid or failed")
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, reference, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if updated {
		return nil
	}

	current, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if current == nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: booking %s is %s", domain.ErrPaymentStatusConflict, reference, current.PaymentStatus)
}

// SetPaymentSession remembers the processor session opened for a pending
// booking so it can be verified against that session later.
func (s *bookingService) SetPaymentSession(ctx context.Context, reference, sessionID string) error {
	updated, err := s.repo.SetPaymentSession(ctx, reference, sessionID)
	if err != nil {
		return fmt.Errorf("failed to record payment session: %w", err)
	}
	if updated {
		return nil
	}
	current, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}
	if current == nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: booking %s is %s", domain.ErrPaymentStatusConflict, reference, current.PaymentStatus)
}

func (s *bookingService) FindByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	if reference == "" {
		return nil, domain.ErrNotFound
	}
	b, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	bs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bs, nil
}

func (s *bookingService) CountStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := s.repo.CountStalePending(ctx, s.schedule.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to count stale bookings: %w", err)
	}
	return n, nil
}
