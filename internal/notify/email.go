// Package notify delivers rendered reports by email.
package notify

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/FranksOps/procura/internal/report"
)

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmails   []string
}

// RenderedMessage is an email with an HTML body and plain text fallback.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

// Render produces both bodies of a report email.
func Render(subject string, v any) (*RenderedMessage, error) {
	var text, html bytes.Buffer
	if err := report.WriteText(&text, v, report.Styles{}); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := report.WriteHTML(&html, v); err != nil {
		return nil, fmt.Errorf("render HTML body: %w", err)
	}
	return &RenderedMessage{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg    EmailConfig
	dialer dialer
	logger *slog.Logger
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg EmailConfig, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second
	return &EmailSender{cfg: cfg, dialer: d, logger: logger}
}

// Send delivers an email with HTML body and plain text fallback.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	if len(s.cfg.ToEmails) == 0 {
		return fmt.Errorf("notify: no recipients configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmails...)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Warn("email send failed", "to", s.cfg.ToEmails, "subject", msg.Subject, "err", err)
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}

	s.logger.Info("email sent", "subject", msg.Subject, "recipients", len(s.cfg.ToEmails))
	return nil
}
