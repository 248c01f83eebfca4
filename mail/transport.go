package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Transport delivers one rendered HTML message.
type Transport interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}

// SMTPConfig configures SMTPTransport. ImplicitTLS dials TLS directly (port
// 465); otherwise the connection is upgraded with STARTTLS.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool
	Timeout     time.Duration
}

// SMTPTransport sends through an authenticated SMTP relay. Each message uses
// its own connection.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport returns a transport for cfg.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	tlsConfig := &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: t.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if t.cfg.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if !t.cfg.ImplicitTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if t.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err := w.Write(buildMIME(from, to, subject, htmlBody, time.Now())); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return client.Quit()
}

func buildMIME(from, to, subject, htmlBody string, at time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}

// LogTransport logs messages instead of sending them. Bodies are not logged.
type LogTransport struct {
	log *zap.Logger
}

// NewLogTransport returns a transport for local development.
func NewLogTransport(log *zap.Logger) *LogTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, from, to, subject, htmlBody string) error {
	t.log.Info("mail delivered to log",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
	)
	return nil
}
