package mailer

import (
	"context"

	"github.com/hygiapro/bookings/pkg/logger"
)

// DevMailer writes messages to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "[DEV MAIL]",
		"to", msg.To,
		"name", msg.ToName,
		"subject", msg.Subject,
		"tags", msg.Tags,
		"text", msg.Text,
	)
	return "", nil
}
