package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs emails instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("email (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// SMTPSender delivers over plain SMTP, for deployments that bring their
// own relay instead of Resend.
type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type Options struct {
	Env          string
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
}

// NewSender picks the delivery backend: log sender for ENV=local, SMTP
// when a host is configured, Resend otherwise.
func NewSender(opts Options, logger *slog.Logger) Sender {
	switch {
	case opts.Env == "local":
		return &LogSender{logger: logger}
	case opts.SMTPHost != "":
		return &SMTPSender{
			host: opts.SMTPHost,
			port: opts.SMTPPort,
			user: opts.SMTPUser,
			pass: opts.SMTPPass,
			from: opts.From,
		}
	default:
		return &ResendSender{
			client: resend.NewClient(opts.ResendAPIKey),
			from:   opts.From,
		}
	}
}
