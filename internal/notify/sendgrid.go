package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrMailerNotConfigured is returned when no API key was provided.
var ErrMailerNotConfigured = errors.New("mailer not configured")

// Message is a plain alert email.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer sends alert emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridMailer returns nil when apiKey is empty so callers can treat an
// unconfigured mailer as absent.
func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	if apiKey == "" {
		return nil
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.client == nil {
		return ErrMailerNotConfigured
	}
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
