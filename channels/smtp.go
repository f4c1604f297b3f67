package channels

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPMailer is the production MailClient. It speaks to one SMTP relay and
// reports success as soon as the relay accepts the message.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type SMTPOption func(*SMTPMailer)

func WithSMTPAuth(username, password, host string) SMTPOption {
	return func(m *SMTPMailer) {
		if username != "" {
			m.auth = smtp.PlainAuth("", username, password, host)
		}
	}
}

// WithSendFunc swaps the wire call, for tests.
func WithSendFunc(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) SMTPOption {
	return func(m *SMTPMailer) {
		if send != nil {
			m.send = send
		}
	}
}

func NewSMTPMailer(addr, from string, opts ...SMTPOption) (*SMTPMailer, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("smtp address is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	m := &SMTPMailer{addr: addr, from: from, send: smtp.SendMail}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), hostPart(m.addr))
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	return messageID, nil
}

func hostPart(addr string) string {
	if host, _, ok := strings.Cut(addr, ":"); ok {
		return host
	}
	return addr
}

var _ MailClient = (*SMTPMailer)(nil)
