package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

// Message is a rendered outbound email. Both bodies are always populated;
// providers decide which parts they transmit.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Config selects and configures a delivery provider.
type Config struct {
	// Provider is one of "smtp", "sendgrid", "log".
	Provider string

	FromName    string
	FromAddress string

	// SMTP settings, used when Provider is "smtp".
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// SendGridKey is the API key, used when Provider is "sendgrid".
	SendGridKey string
}

// NewSender builds the configured provider.
func NewSender(cfg Config) (Sender, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("mailer: from address is required")
	}

	switch cfg.Provider {
	case "smtp":
		return newSMTPSender(cfg)
	case "sendgrid":
		return newSendGridSender(cfg)
	case "log":
		return &LogSender{}, nil
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the process log instead of delivering them.
// For development and tests only.
type LogSender struct{}

func (l *LogSender) Send(_ context.Context, to string, msg Message) error {
	slog.Info("mail (not sent)", "to", to, "subject", msg.Subject, "text", msg.Text)
	return nil
}
