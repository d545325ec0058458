package email

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursemarket/internal/config"
)

// Mailer delivers account emails
type Mailer interface {
	SendPasswordResetCode(ctx context.Context, toEmail, toName, code string, expiresAt time.Time) error
}

// Message is a rendered email
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	// Code is kept alongside the rendered body so log and test mailers can expose it
	Code string
}

// New returns the mailer selected by cfg.Mail.Driver
func New(cfg *config.Config, logger zerolog.Logger) Mailer {
	switch cfg.Mail.Driver {
	case config.MailDriverSMTP:
		return NewSMTPMailer(SMTPConfig{
			Host:      cfg.Mail.SMTPHost,
			Port:      cfg.Mail.SMTPPort,
			Username:  cfg.Mail.SMTPUsername,
			Password:  cfg.Mail.SMTPPassword,
			FromName:  cfg.Mail.FromName,
			FromEmail: cfg.Mail.From,
			UseTLS:    cfg.Mail.SMTPPort == 465,
		}, logger)
	case config.MailDriverSendGrid:
		return NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.From, logger)
	default:
		return NewLogMailer(logger)
	}
}

func resetMessage(toEmail, toName, code string, expiresAt time.Time) Message {
	if toName == "" {
		toName = toEmail
	}
	expires := expiresAt.UTC().Format(time.RFC1123)

	return Message{
		To:      toEmail,
		ToName:  toName,
		Subject: "Your password reset code",
		Code:    code,
		Text: fmt.Sprintf("Hello %s,\n\nUse the code %s to reset your password. "+
			"The code expires at %s.\n\nIf you did not ask for a reset, ignore this email.\n", toName, code, expires),
		HTML: fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Password reset</h2>
				<p>Hello %s,</p>
				<p>Use the code below to reset your password:</p>
				<p style="font-size: 24px; letter-spacing: 4px;"><strong>%s</strong></p>
				<p>The code expires at %s.</p>
				<p>If you did not ask for a reset, ignore this email.</p>
			</div>
		</body>
		</html>
	`, toName, code, expires),
	}
}

// LogMailer writes reset codes to the log instead of sending mail
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordResetCode logs the code at WARN level
func (m *LogMailer) SendPasswordResetCode(_ context.Context, toEmail, _ string, code string, expiresAt time.Time) error {
	m.logger.Warn().
		Str("toEmail", toEmail).
		Str("code", code).
		Time("expiresAt", expiresAt).
		Msg("Mail delivery not configured - password reset code logged instead of sent.")
	return nil
}

// Recorder keeps every message in memory
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

// SendPasswordResetCode records the rendered message
func (r *Recorder) SendPasswordResetCode(_ context.Context, toEmail, toName, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, resetMessage(toEmail, toName, code, expiresAt))
	return nil
}

// Sent returns a copy of the recorded messages
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message sent to toEmail
func (r *Recorder) Last(toEmail string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == toEmail {
			return r.sent[i], true
		}
	}
	return Message{}, false
}
