// Package mailer delivers one-time codes over email.
//
// The auth service only sees the Mailer interface; tests substitute a
// recording fake, and the SMTP implementation below is the production
// collaborator. Delivery failures surface immediately to the caller —
// there is no retry or queue, the client simply requests a new code.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sakif/media-gallery/internal/config"
)

// Purpose says which flow a code belongs to; it only changes the wording
// of the mail.
type Purpose string

const (
	PurposeVerification Purpose = "verification"
	PurposeReset        Purpose = "reset"
)

// Mailer sends a one-time code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, purpose Purpose) error
}

// SMTPMailer delivers codes through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg config.SMTP
}

// NewSMTP creates an SMTPMailer from the relay settings.
func NewSMTP(cfg config.SMTP) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendOTP composes and delivers the code mail.
//
// net/smtp has no context support; the call is bounded by the OS-level
// TCP timeouts, and a failing relay surfaces as an error the handler
// maps to an upstream failure. ctx is accepted for interface symmetry
// and future transports.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, purpose Purpose) error {
	subject := fmt.Sprintf("%s - Your verification code", m.cfg.AppName)
	intro := "To complete your registration, use the verification code below:"
	if purpose == PurposeReset {
		subject = fmt.Sprintf("%s - Your password reset code", m.cfg.AppName)
		intro = "You requested a password reset. Use the code below to choose a new password:"
	}

	body := fmt.Sprintf(
		"Hello,\n\n%s\n\nCode: %s\n\nThis code expires in 10 minutes. "+
			"If you did not request it, you can ignore this email.\n\n%s",
		intro, code, m.cfg.AppName)

	// Headers per RFC 822 — note the CRLF line endings and the blank
	// line separating headers from body.
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.User),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.User, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: sending OTP to %s: %w", to, err)
	}
	return nil
}
