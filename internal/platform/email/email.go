package email

import (
	"context"
	"crypto/tls"
	"errors"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

var ErrNoRecipient = errors.New("email: message has no recipient")

// Message is one plain text notification.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings describe the SMTP relay. An empty Host disables delivery.
type Settings struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	StartTLS bool
	Timeout  time.Duration
}

type discard struct{}

func (discard) Send(context.Context, Message) error { return nil }

type relay struct {
	Settings
}

func New(s Settings) Mailer {
	if !s.Enabled || s.Host == "" {
		return discard{}
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	return &relay{Settings: s}
}

func (r *relay) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(r.Host, strconv.Itoa(r.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, r.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if r.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: r.Host}); err != nil {
			return err
		}
	}
	if r.User != "" {
		if err := client.Auth(smtp.PlainAuth("", r.User, r.Password, r.Host)); err != nil {
			return err
		}
	}
	if err := client.Mail(msg.From); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg.bytes(time.Now())); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// bytes renders msg as an RFC 5322 message. Non-ASCII subjects are Q-encoded.
func (msg Message) bytes(now time.Time) []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	return []byte(b.String())
}
