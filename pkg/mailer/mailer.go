// Package mailer delivers notification emails.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Message is a single email addressed to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	SkipTLSVerify bool
	Timeout       time.Duration
}

// SMTPMailer sends through an SMTP relay with mandatory STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPMailer builds an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("mailer: smtp host and from address are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	dialer := mail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	if cfg.Timeout > 0 {
		dialer.Timeout = cfg.Timeout
	}

	return &SMTPMailer{dialer: dialer, from: cfg.From}, nil
}

// Send delivers msg. The dialer timeout bounds each attempt; ctx cancellation
// is checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		message.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			message.AddAlternative("text/html", msg.HTML)
		}
	} else {
		message.SetBody("text/html", msg.HTML)
	}

	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer records messages in the log instead of sending them.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer constructs a logging mailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the message and reports success.
func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	l.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivered to log")
	return nil
}
