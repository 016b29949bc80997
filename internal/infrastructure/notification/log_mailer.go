package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// LogMailer records notifications in the log instead of sending them.
// It is used when no SMTP host is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// SendHTML logs the message envelope
func (m *LogMailer) SendHTML(_ context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	m.logger.Info("Notification (not sent, SMTP disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
