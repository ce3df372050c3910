// Package email implements the notification-email collaborator: SMTP
// delivery via gomail plus the HTML templates for booking-confirmation
// messages. Services depend on the Mailer interface so tests can substitute
// a fake transport.
package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"
)

// Mailer sends one HTML email and returns a delivery id for the message.
// Implementations must be safe for concurrent use. There is no retry policy
// at this layer; a transient failure surfaces to the caller.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// Config holds the SMTP settings for the Sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender is the gomail-backed Mailer.
type Sender struct {
	cfg Config

	// dialAndSend is swappable for tests. The variadic signature matches
	// gomail's Dialer.DialAndSend.
	dialAndSend func(m ...*gomail.Message) error
}

// NewSender constructs a Sender that dials the configured SMTP host per send.
func NewSender(cfg Config) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Sender{cfg: cfg, dialAndSend: d.DialAndSend}
}

// Send implements Mailer. The returned delivery id is also stamped on the
// outgoing Message-ID header so it can be correlated with provider logs.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	id := uuid.NewString()

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", id, s.cfg.Host))
	m.SetBody("text/html", htmlBody)

	// gomail has no context support; run the dial in a goroutine so callers
	// can still bail out on cancellation.
	done := make(chan error, 1)
	go func() { done <- s.dialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("send email to %s: %w", to, err)
		}
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
