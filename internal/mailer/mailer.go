// Package mailer delivers digest emails over SMTP with implicit TLS. The
// relay listens TLS-first on port 465, so the connection is wrapped before
// the SMTP handshake rather than upgraded with STARTTLS.
package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"prensa/internal/config"
	"prensa/internal/logger"
)

// Mailer errors.
var (
	ErrNoRecipients = errors.New("no recipients configured")
)

// Mailer sends HTML mail through one configured relay.
type Mailer struct {
	cfg    config.MailConfig
	logger *logger.Logger
	now    func() time.Time
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithClock overrides the Date header clock (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

// NewMailer creates a mailer for the given relay configuration.
func NewMailer(cfg config.MailConfig, log *logger.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Send delivers one HTML message to the configured recipient list. Failures
// propagate to the caller; there is no retry here because the relay applies
// its own queueing once the message is accepted.
func (m *Mailer) Send(subject, htmlBody string) error {
	if len(m.cfg.Recipients) == 0 {
		return ErrNoRecipients
	}

	msg := m.BuildMessage(subject, htmlBody)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to relay %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}

	if err := client.Mail(m.cfg.User); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}

	for _, rcpt := range m.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("message not accepted: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("digest sent", "recipients", len(m.cfg.Recipients), "subject", subject)
	}

	return client.Quit()
}

// BuildMessage assembles the full RFC 5322 message: headers, UTF-8 subject
// encoding and the HTML body with CRLF line endings.
func (m *Mailer) BuildMessage(subject, htmlBody string) string {
	from := m.cfg.User
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.FromName), m.cfg.User)
	}

	domain := m.cfg.Host
	if at := strings.LastIndex(m.cfg.User, "@"); at >= 0 {
		domain = m.cfg.User[at+1:]
	}

	headers := []string{
		"From: " + from,
		"To: " + strings.Join(m.cfg.Recipients, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Date: " + m.now().Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), domain),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="utf-8"`,
	}

	body := strings.ReplaceAll(htmlBody, "\n", "\r\n")

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n"
}
