// internal/app/system/mailer/mailer.go
//
// Package mailer sends notification email over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	gomail "gopkg.in/mail.v2"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email. *Mailer satisfies it.
type Sender interface {
	Send(e Email) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Enabled reports whether enough is configured to attempt delivery.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// ErrDisabled is returned by Send when SMTP is not configured.
var ErrDisabled = errors.New("mailer: smtp not configured")

// Mailer sends through a single SMTP relay.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// New builds a Mailer. A Mailer built from an incomplete Config is valid
// but every Send returns ErrDisabled.
func New(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg}
	if cfg.Enabled() {
		port := cfg.Port
		if port == 0 {
			port = 587
		}
		m.dialer = gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
	}
	return m
}

// Enabled reports whether Send will attempt delivery.
func (m *Mailer) Enabled() bool {
	return m != nil && m.dialer != nil
}

// Send delivers e. The text body is always included; the HTML body is
// added as an alternative when present.
func (m *Mailer) Send(e Email) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	msg, err := m.message(e)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", e.To, err)
	}
	return nil
}

func (m *Mailer) message(e Email) (*gomail.Message, error) {
	if _, err := mail.ParseAddress(e.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", e.To, err)
	}
	msg := gomail.NewMessage()
	if m.cfg.FromName != "" {
		msg.SetAddressHeader("From", m.cfg.From, m.cfg.FromName)
	} else {
		msg.SetHeader("From", m.cfg.From)
	}
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", strings.TrimSpace(e.Subject))
	msg.SetBody("text/plain", e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternative("text/html", e.HTMLBody)
	}
	return msg, nil
}
