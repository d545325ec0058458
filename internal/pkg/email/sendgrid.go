package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends mail through the SendGrid v3 API
type SendGridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridMailer creates a SendGridMailer
func NewSendGridMailer(key, fromName, fromEmail string, logger zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		key:    key,
		host:   sendGridHost,
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return v3
}

// SendPasswordResetCode mails the reset code
func (m *SendGridMailer) SendPasswordResetCode(_ context.Context, toEmail, toName, code string, expiresAt time.Time) error {
	msg := resetMessage(toEmail, toName, code, expiresAt)

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		m.logger.Error().Err(err).Str("toEmail", toEmail).Msg("SendGrid request failed")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("SendGrid rejected email")
		return fmt.Errorf("sendgrid responded with status %d", res.StatusCode)
	}
	return nil
}
