package notifications

import (
	"encoding/json"
	"errors"
	"log/slog"

	"taskmanager/internal/logger"
)

// Consumer handles account events taken off the work queue.
type Consumer struct {
	sender Sender
	rec    Recorder
	log    *slog.Logger
}

// NewConsumer creates a new Consumer. rec may be nil.
func NewConsumer(sender Sender, rec Recorder, log *slog.Logger) *Consumer {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Consumer{sender: sender, rec: rec, log: log}
}

// Handle processes one message body. Malformed messages and unknown event
// types are dropped; a delivery error is returned so the message is retried.
func (c *Consumer) Handle(body []byte) error {
	var event AccountEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.log.Error("dropping malformed account event", logger.Err(err))
		return nil
	}

	err := deliver(c.sender, c.rec, c.log, event)
	if errors.Is(err, ErrUnknownEvent) {
		c.log.Warn("dropping account event", logger.Err(err))
		return nil
	}
	return err
}
