package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

type smtpSender struct {
	addr string
	auth smtp.Auth
	from string
	name string
}

func newSMTPSender(cfg Config) (*smtpSender, error) {
	if cfg.SMTPHost == "" || cfg.SMTPPort == 0 {
		return nil, fmt.Errorf("mailer: smtp host and port are required")
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &smtpSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.FromAddress,
		name: cfg.FromName,
	}, nil
}

// Send delivers msg as a multipart/alternative message. net/smtp has no
// context support; cancellation is checked before dialing only.
func (s *smtpSender) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const boundary = "authcore-alt-0001"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", s.name), s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(b.String()))
}
