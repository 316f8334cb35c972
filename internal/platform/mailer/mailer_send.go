package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

const mailerSendTimeout = 10 * time.Second

// MailerSend delivers through the MailerSend email API.
type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) (*MailerSend, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("mailersend needs EMAIL_MAILERSEND_API_KEY and EMAIL_FROM")
	}
	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}, nil
}

func (m *MailerSend) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, mailerSendTimeout)
	defer cancel()

	em := m.client.Email.NewMessage()
	em.SetFrom(m.from)
	em.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	em.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		em.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		em.SetHTML(msg.HTML)
	}
	if len(msg.Tags) > 0 {
		em.SetTags(msg.Tags)
	}

	res, err := m.client.Email.Send(ctx, em)
	if err != nil {
		return "", fmt.Errorf("mailersend send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusAccepted && (res.StatusCode < 200 || res.StatusCode >= 300) {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("mailersend: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Header.Get("X-Message-Id"), nil
}
