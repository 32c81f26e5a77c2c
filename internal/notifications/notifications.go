// Package notifications turns account lifecycle events into emails, either
// through the RabbitMQ work queue or by mailing directly.
package notifications

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"taskmanager/internal/logger"
	"taskmanager/internal/models"
	"taskmanager/pkg/mailer"
)

// Queue carries account events from the API to the mail consumer.
const Queue = "account_emails"

const (
	EventAccountCreated = "account.created"
	EventAccountDeleted = "account.deleted"
)

// AccountEvent is the message published for every account lifecycle change.
type AccountEvent struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newEvent(eventType string, user *models.User) AccountEvent {
	return AccountEvent{Type: eventType, Email: user.Email, Name: user.Name}
}

// Publisher puts a message on the work queue.
type Publisher interface {
	PublishJSON(v any) error
}

// Sender delivers the account emails.
type Sender interface {
	SendWelcome(email, name string) error
	SendCancellation(email, name string) error
}

// Recorder counts delivery outcomes.
type Recorder interface {
	EmailSent(kind, result string)
}

type nopRecorder struct{}

func (nopRecorder) EmailSent(string, string) {}

// ErrUnknownEvent is returned for events no email exists for.
var ErrUnknownEvent = errors.New("unknown account event")

// deliver sends the email matching event. An unconfigured mailer is not an
// error: the email is skipped.
func deliver(sender Sender, rec Recorder, log *slog.Logger, event AccountEvent) error {
	var (
		kind string
		err  error
	)
	switch event.Type {
	case EventAccountCreated:
		kind = "welcome"
		err = sender.SendWelcome(event.Email, event.Name)
	case EventAccountDeleted:
		kind = "cancellation"
		err = sender.SendCancellation(event.Email, event.Name)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}

	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		rec.EmailSent(kind, "skipped")
		log.Debug("mailer not configured, email skipped", slog.String("kind", kind), slog.String("to", event.Email))
		return nil
	case err != nil:
		rec.EmailSent(kind, "failed")
		return err
	}
	rec.EmailSent(kind, "sent")
	return nil
}

// QueueNotifier publishes account events to RabbitMQ. Publishing failures
// are logged and swallowed.
type QueueNotifier struct {
	publisher Publisher
	log       *slog.Logger
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(publisher Publisher, log *slog.Logger) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, log: log}
}

func (n *QueueNotifier) AccountCreated(user *models.User) {
	n.publish(newEvent(EventAccountCreated, user))
}

func (n *QueueNotifier) AccountDeleted(user *models.User) {
	n.publish(newEvent(EventAccountDeleted, user))
}

func (n *QueueNotifier) publish(event AccountEvent) {
	if err := n.publisher.PublishJSON(event); err != nil {
		n.log.Error("failed to publish account event",
			slog.String("type", event.Type),
			slog.String("email", event.Email),
			logger.Err(err))
	}
}

// MailNotifier sends emails directly in the background. It is used when no
// broker is configured.
type MailNotifier struct {
	sender Sender
	rec    Recorder
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewMailNotifier creates a new MailNotifier. rec may be nil.
func NewMailNotifier(sender Sender, rec Recorder, log *slog.Logger) *MailNotifier {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &MailNotifier{sender: sender, rec: rec, log: log}
}

func (n *MailNotifier) AccountCreated(user *models.User) {
	n.send(newEvent(EventAccountCreated, user))
}

func (n *MailNotifier) AccountDeleted(user *models.User) {
	n.send(newEvent(EventAccountDeleted, user))
}

func (n *MailNotifier) send(event AccountEvent) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := deliver(n.sender, n.rec, n.log, event); err != nil {
			n.log.Error("failed to send account email",
				slog.String("type", event.Type),
				slog.String("email", event.Email),
				logger.Err(err))
		}
	}()
}

// Wait blocks until every email in flight has been handled.
func (n *MailNotifier) Wait() {
	n.wg.Wait()
}
