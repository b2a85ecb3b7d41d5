// Package mail delivers outbound email.  The only message the helpdesk
// sends today is the password reset link.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/apprentice-helpdesk/internal/config"
)

// Message is a plain-text email to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// New picks the SMTP sender, or the log-only sender when sending is
// suppressed or no server is configured.
func New(cfg config.MailConfig, logger *slog.Logger) Sender {
	if cfg.SuppressSend || cfg.Server == "" {
		return &LogSender{Logger: logger}
	}
	return &SMTPSender{Config: cfg}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.Logger.Info("mail suppressed", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

// SMTPSender talks to an SMTP relay using implicit TLS (UseSSL), STARTTLS
// (UseTLS) or plain text.
type SMTPSender struct {
	Config config.MailConfig
}

const dialTimeout = 10 * time.Second

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := Compose(s.Config, m, time.Now())
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(s.Config.Server, clientOptions(s.Config)...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// clientOptions maps MAIL_* settings onto the go-mail client.
func clientOptions(cfg config.MailConfig) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(dialTimeout),
		gomail.WithTLSConfig(&tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}),
	}
	switch {
	case cfg.UseSSL:
		opts = append(opts, gomail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	return opts
}

// Compose builds the message with the configured sender.  Invalid
// addresses are reported here, before any connection is made.
func Compose(cfg config.MailConfig, m Message, now time.Time) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	from := msg.From
	if cfg.FromName != "" {
		from = func(addr string) error { return msg.FromFormat(cfg.FromName, addr) }
	}
	if err := from(cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDateWithValue(now)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}
