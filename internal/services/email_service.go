package services

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"

	"github.com/example/bakehouse/internal/config"
)

// ErrMailNotConfigured is returned when SMTP settings are missing.
var ErrMailNotConfigured = errors.New("smtp is not configured")

// Mailer sends an email message.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, htmlBody string) error
}

// EmailService sends mail through an SMTP relay.
type EmailService struct {
	cfg  config.SMTPConfig
	dial func(m *gomail.Message) error
}

// NewEmailService builds an SMTP mailer.
func NewEmailService(cfg config.SMTPConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		return d.DialAndSend(m)
	}
	return s
}

func (s *EmailService) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.Sender != ""
}

// SendMail delivers one HTML message. The context only guards against
// sending after the caller gave up; gomail has no cancellation support.
func (s *EmailService) SendMail(ctx context.Context, to, subject, htmlBody string) error {
	if !s.Enabled() {
		return ErrMailNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dial(s.buildMessage(to, subject, htmlBody))
}

func (s *EmailService) buildMessage(to, subject, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Sender)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return m
}
