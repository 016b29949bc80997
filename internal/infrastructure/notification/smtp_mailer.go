// Package notification delivers import completion reports by email.
package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no address to go to
var ErrNoRecipient = errors.New("notification: recipient is required")

type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML mail through an SMTP relay
type SMTPMailer struct {
	host   string
	addr   string
	from   string
	auth   smtp.Auth
	send   sendFunc
	logger *zap.Logger
}

// SMTPMailerOption configures an SMTPMailer
type SMTPMailerOption func(*SMTPMailer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) SMTPMailerOption {
	return func(m *SMTPMailer) {
		m.logger = logger
	}
}

// NewSMTPMailer creates a mailer from configuration
func NewSMTPMailer(cfg *config.SMTPConfig, opts ...SMTPMailerOption) (*SMTPMailer, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	m := &SMTPMailer{
		host:   cfg.Host,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:   cfg.From,
		send:   sendMail,
		logger: zap.NewNop(),
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SendHTML delivers one HTML message
func (m *SMTPMailer) SendHTML(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}

	msg := buildMessage(m.from, to, subject, body, time.Now())
	if err := m.send(ctx, m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	m.logger.Info("Notification sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: " + from + "\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	buf.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("Message-ID: <" + uuid.NewString() + "@catalogsync>\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// sendMail is smtp.SendMail with the dial and the session bound to ctx
func sendMail(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
