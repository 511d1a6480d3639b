// Package mailer builds the Kindle delivery email and sends it over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const SubjectPrefix = "[Article] "

type Message struct {
	From  string
	To    string
	Title string
	HTML  []byte
}

// Subject is "[Article] <title>".
func (m Message) Subject() string { return SubjectPrefix + m.Title }

// Filename is the attachment name, always ending in ".html".
func (m Message) Filename() string { return SanitizeFilename(m.Title) + ".html" }

// Build assembles the MIME message: no body, one HTML attachment.
func Build(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(strings.TrimSpace(m.From)); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(strings.TrimSpace(m.To)); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(m.Subject())
	if err := msg.AttachReader(m.Filename(), bytes.NewReader(m.HTML), mail.WithFileContentType(mail.TypeTextHTML)); err != nil {
		return nil, fmt.Errorf("attach document: %w", err)
	}
	return msg, nil
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender delivers with mandatory STARTTLS and PLAIN auth.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

func (s SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := Build(m)
	if err != nil {
		return err
	}
	host := strings.TrimSpace(s.Host)
	if host == "" {
		return fmt.Errorf("missing smtp server")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c, err := mail.NewClient(host,
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
