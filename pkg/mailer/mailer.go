// Package mailer composes the account emails and hands them to an SMTP relay.
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/emersion/go-message/mail"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("mailer: provider API key not configured")

const (
	welcomeSubject      = "Welcome to Task Manager Application"
	cancellationSubject = "Sorry to see you go!"
)

// Config describes the email provider's SMTP relay. APIKey is used as the
// SMTP password.
type Config struct {
	APIKey string
	Host   string
	Port   int
	User   string
	From   string
}

// Transport delivers an already composed message.
type Transport interface {
	Send(from string, to []string, msg []byte) error
}

// Mailer sends the welcome and cancellation emails.
type Mailer struct {
	cfg       Config
	transport Transport
	log       *slog.Logger
}

// New returns a Mailer delivering through the SMTP relay in cfg.
func New(cfg Config, log *slog.Logger) *Mailer {
	return NewWithTransport(cfg, NewSMTPTransport(cfg), log)
}

// NewWithTransport returns a Mailer using a custom transport.
func NewWithTransport(cfg Config, transport Transport, log *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, transport: transport, log: log}
}

// Configured reports whether messages can actually be sent.
func (m *Mailer) Configured() bool {
	return m.cfg.APIKey != ""
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(email, name string) error {
	body := fmt.Sprintf("Welcome <strong>%s</strong>.<br><br>It's great to have you onboard Task Manager. "+
		"Let me know if you need anything.<br><br>Cheers<br>The Task Manager team", html.EscapeString(name))
	return m.send(email, name, welcomeSubject, body)
}

// SendCancellation says goodbye to a user who deleted their account.
func (m *Mailer) SendCancellation(email, name string) error {
	body := fmt.Sprintf("Hey <strong>%s</strong>.<br><br>We are really sad to see you leave. "+
		"We would really appreciate it if you could let us know what we can do better.<br><br>Cheers<br>The Task Manager team",
		html.EscapeString(name))
	return m.send(email, name, cancellationSubject, body)
}

func (m *Mailer) send(email, name, subject, body string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	msg, err := compose(m.cfg.From, email, name, subject, body)
	if err != nil {
		return err
	}
	if err := m.transport.Send(m.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, email, err)
	}

	m.log.Info("email sent", slog.String("to", email), slog.String("subject", subject))
	return nil
}

func compose(from, to, name, subject, htmlBody string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: "Task Manager", Address: from}})
	h.SetAddressList("To", []*mail.Address{{Name: name, Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := w.Write([]byte(htmlBody)); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}
	return buf.Bytes(), nil
}
