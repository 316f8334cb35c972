package mailer

import (
	"github.com/hygiapro/bookings/pkg/config"
	"github.com/hygiapro/bookings/pkg/logger"
)

// FromConfig picks MailerSend when an API key is set, the log mailer in dev
// mode, and SMTP otherwise.
func FromConfig(cfg config.EmailConfig) Service {
	if cfg.MailerSendKey != "" {
		ms, err := NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.From)
		if err == nil {
			return ms
		}
		logger.Warn("MailerSend not usable, falling back", "error", err)
	}
	if cfg.DevMode {
		logger.Info("Email dev mode: messages are logged, not sent")
		return NewDevMailer()
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.FromName, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
}
