package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var ErrMailerNotConfigured = errors.New("email delivery is not configured")

type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	html := e.HTML
	if html == "" {
		html = e.Text
	}
	message := mail.NewSingleEmail(m.from, e.Subject, mail.NewEmail(e.ToName, e.To), e.Text, html)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// DisabledMailer stands in when SENDGRID_API_KEY is unset. Every send fails
// so the attempt is logged and retried once delivery is configured.
type DisabledMailer struct {
	log *zap.Logger
}

func NewDisabledMailer(log *zap.Logger) *DisabledMailer {
	return &DisabledMailer{log: log}
}

func (m *DisabledMailer) Send(_ context.Context, e Email) error {
	m.log.Warn("Missing SendGrid config, skipping email",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return ErrMailerNotConfigured
}
