package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hygiapro/bookings/internal/platform/mailer"
	"github.com/hygiapro/bookings/pkg/events"
	"github.com/hygiapro/bookings/pkg/logger"
)

// NotificationService emails customers once their payment settles.
type NotificationService struct {
	bookings BookingService
	mailer   mailer.Service
}

func NewNotificationService(bookings BookingService, m mailer.Service) *NotificationService {
	return &NotificationService{bookings: bookings, mailer: m}
}

const confirmationTimeout = 30 * time.Second

// Start subscribes to payment.paid on a shared queue so that only one
// instance sends each confirmation. Sends in flight are abandoned once ctx
// is done.
func (n *NotificationService) Start(ctx context.Context, sub events.Subscriber) error {
	return sub.QueueSubscribe(events.PaymentPaid, "notify", func(msg *events.Message) {
		var ev events.PaymentSettledEvent
		if err := msg.Decode(&ev); err != nil {
			logger.Error("Malformed payment event", "subject", msg.Subject, "error", err)
			return
		}
		sctx, cancel := context.WithTimeout(ctx, confirmationTimeout)
		defer cancel()
		if err := n.SendConfirmation(sctx, ev.Reference); err != nil {
			logger.Error("Failed to send booking confirmation", "reference", ev.Reference, "error", err)
		}
	})
}

func (n *NotificationService) SendConfirmation(ctx context.Context, reference string) error {
	b, err := n.bookings.FindByReference(ctx, reference)
	if err != nil {
		return err
	}
	msg, err := mailer.BookingConfirmation(b)
	if err != nil {
		return err
	}
	id, err := n.mailer.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	logger.InfoContext(ctx, "Booking confirmation sent", "reference", reference, "message_id", id)
	return nil
}
