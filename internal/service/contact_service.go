package service

import (
	"context"
	"fmt"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/platform/mailer"
	"github.com/hygiapro/bookings/internal/utils"
	"github.com/hygiapro/bookings/pkg/logger"
)

type ContactService interface {
	Submit(ctx context.Context, msg domain.ContactMessage) error
}

type contactService struct {
	mailer mailer.Service
	inbox  string
}

func NewContactService(m mailer.Service, inbox string) ContactService {
	return &contactService{mailer: m, inbox: inbox}
}

func (s *contactService) Submit(ctx context.Context, msg domain.ContactMessage) error {
	msg.Normalize()
	if err := domain.Validate(msg); err != nil {
		return err
	}

	notice, err := mailer.ContactNotice(msg, s.inbox)
	if err != nil {
		return err
	}
	if _, err := s.mailer.Send(ctx, notice); err != nil {
		logger.ErrorContext(ctx, "Failed to forward contact message", "from", utils.MaskEmail(msg.Email), "error", err)
		return fmt.Errorf("forward contact message: %w", err)
	}
	logger.InfoContext(ctx, "Contact message forwarded", "from", utils.MaskEmail(msg.Email))
	return nil
}
