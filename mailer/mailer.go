// Package mailer delivers transactional email for the auth flows. The
// password reset flow depends on delivery succeeding, so Send returns an
// error instead of firing and forgetting.
package mailer

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	gomail "gopkg.in/gomail.v2"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP connection options.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail over SMTP using gomail.
type SMTPMailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer from the given SMTP options.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers the message. It honors context cancellation before dialing;
// gomail itself does not take a context.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before mail delivery")
	default:
	}

	out := gomail.NewMessage()
	out.SetHeader("From", m.cfg.From)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		out.AddAlternative("text/html", msg.HTML)
	}

	if err := m.dialer.DialAndSend(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to deliver mail")
	}

	return nil
}

// Noop is a Mailer that drops everything. Useful in tests and local
// development without an SMTP server.
type Noop struct{}

// Send implements Mailer.
func (Noop) Send(context.Context, Message) error { return nil }
