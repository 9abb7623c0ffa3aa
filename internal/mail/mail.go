// Package mail is the outbound mail collaborator. Sends are dispatched on a
// detached goroutine with an explicit dial timeout; failures are logged and
// never observable by the request that triggered them.
package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"sociogram/backend/internal/config"

	"github.com/rs/zerolog/log"
)

// SendAsync fires off an HTML mail and returns immediately.
func SendAsync(subject string, recipients []string, htmlBody string) {
	go func() {
		if err := send(subject, recipients, htmlBody); err != nil {
			log.Error().Err(err).
				Str("subject", subject).
				Strs("recipients", recipients).
				Msg("mail send failed")
		}
	}()
}

func send(subject string, recipients []string, htmlBody string) error {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return fmt.Errorf("smtp host not configured")
	}

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	timeout := time.Duration(cfg.MailTimeoutSeconds) * time.Second

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	// Bound the whole exchange, not just the dial.
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", cfg.SMTPFrom, cfg.SMTPPassword, cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(cfg.SMTPFrom); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + cfg.SMTPFrom,
		"To: " + strings.Join(recipients, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
