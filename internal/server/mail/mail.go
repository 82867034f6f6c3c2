// Package mail defines the mail dispatcher contract used by the auth service.
package mail

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrNoRecipient is returned when a message has no recipient.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages. On success it returns the delivery confirmation id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogMailer writes messages to the log instead of delivering them.
// It is the development dispatcher: the link can be copied from the server output.
type LogMailer struct {
	logger *slog.Logger
	from   string
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger, from string) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

// Send logs the message and returns a random confirmation id.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}

	id := uuid.New().String()
	m.logger.InfoContext(ctx, "Email dispatched",
		slog.String("email_id", id),
		slog.String("from", m.from),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)

	return id, nil
}
