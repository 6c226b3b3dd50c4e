package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds configuration for the SMTP mailer
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPMailer sends email through an SMTP relay
type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPMailer creates an SMTP client. Authentication is only used when a username is set.
func NewSMTPMailer(config SMTPConfig) (*SMTPMailer, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	port := config.Port
	if port == 0 {
		port = 587
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(timeout),
	}
	if config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not initialize smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: config.From, fromName: config.FromName}, nil
}

// Send delivers msg
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.buildMessage(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if m.fromName != "" {
		if err := out.FromFormat(m.fromName, m.from); err != nil {
			return nil, fmt.Errorf("failed to set From address: %w", err)
		}
	} else if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("failed to set From address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("failed to set To address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

// GetName returns the mailer name
func (m *SMTPMailer) GetName() string {
	return "smtp"
}
