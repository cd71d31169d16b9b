package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func newSendGridSender(cfg Config) (*sendGridSender, error) {
	if cfg.SendGridKey == "" {
		return nil, fmt.Errorf("mailer: sendgrid api key is required")
	}

	return &sendGridSender{
		client: sendgrid.NewSendClient(cfg.SendGridKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
	}, nil
}

func (s *sendGridSender) Send(ctx context.Context, to string, msg Message) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", to), msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}
