package mailer

import (
	"context"
	"log/slog"
)

// LogMailer writes codes to the log instead of sending mail. It stands
// in for the SMTP relay during local development when no relay is
// configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLog creates a LogMailer.
func NewLog(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendOTP logs the code. Never use this outside development: the code
// ends up in plain text in the process log.
func (m *LogMailer) SendOTP(ctx context.Context, to, code string, purpose Purpose) error {
	m.logger.Warn("otp not emailed, smtp relay unconfigured",
		slog.String("to", to),
		slog.String("code", code),
		slog.String("purpose", string(purpose)),
	)
	return nil
}
