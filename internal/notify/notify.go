// Package notify sends renewal notification mail. Delivery failures
// are logged by the caller and never fail a renewal.
package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

// PlaceholderHost is the host value the setup tooling writes before
// the operator fills in real relay settings. It is treated the same
// as "unconfigured".
const PlaceholderHost = "smtp.example.com"

// Notice is the content of one renewal notification.
type Notice struct {
	Domain      string
	Hostnames   []string
	Fingerprint string
	ExpiresAt   string
	Artifacts   []string // file paths written
	Recipient   string
}

// Configured reports whether the SMTP settings are usable.
func Configured(s *config.SMTP) bool {
	return s != nil && s.Host != "" && s.Host != PlaceholderHost && s.Port > 0 && s.Sender != ""
}

// Render builds the message subject and body.
func Render(n Notice) (subject, body string) {
	subject = fmt.Sprintf("Origin certificate renewed: %s", n.Domain)

	var b strings.Builder
	fmt.Fprintf(&b, "The origin certificate for %s was renewed.\n\n", n.Domain)
	fmt.Fprintf(&b, "Hostnames: %s\n", strings.Join(n.Hostnames, ", "))
	if n.Fingerprint != "" {
		fmt.Fprintf(&b, "Fingerprint (SHA-256): %s\n", n.Fingerprint)
	}
	if n.ExpiresAt != "" {
		fmt.Fprintf(&b, "Expires: %s\n", n.ExpiresAt)
	}
	if len(n.Artifacts) > 0 {
		b.WriteString("\nFiles:\n")
		for _, p := range n.Artifacts {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	return subject, b.String()
}

// Notifier delivers notices through an SMTP relay.
type Notifier struct {
	SMTP config.SMTP
}

// NewNotifier creates a notifier for the given relay settings.
func NewNotifier(s config.SMTP) *Notifier {
	return &Notifier{SMTP: s}
}

// Send delivers one notice. use_tls selects implicit TLS (e.g. port
// 465); otherwise the connection is upgraded with STARTTLS when the
// server offers it.
func (n *Notifier) Send(notice Notice) error {
	if !Configured(&n.SMTP) {
		return fmt.Errorf("smtp relay not configured")
	}
	if notice.Recipient == "" {
		return fmt.Errorf("no recipient")
	}

	subject, body := Render(notice)
	msg := buildMessage(n.SMTP.Sender, notice.Recipient, subject, body)

	addr := net.JoinHostPort(n.SMTP.Host, fmt.Sprintf("%d", n.SMTP.Port))

	client, err := n.dial(addr)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if n.SMTP.Username != "" {
		auth := smtp.PlainAuth("", n.SMTP.Username, n.SMTP.Password, n.SMTP.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(n.SMTP.Sender); err != nil {
		return fmt.Errorf("smtp MAIL failed: %w", err)
	}
	if err := client.Rcpt(notice.Recipient); err != nil {
		return fmt.Errorf("smtp RCPT failed: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return client.Quit()
}

// dial opens the SMTP session, with implicit TLS or STARTTLS.
func (n *Notifier) dial(addr string) (*smtp.Client, error) {
	if n.SMTP.UseTLS {
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 30 * time.Second}, "tcp", addr, &tls.Config{
			ServerName: n.SMTP.Host,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp tls connect failed: %w", err)
		}
		client, err := smtp.NewClient(conn, n.SMTP.Host)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("smtp handshake failed: %w", err)
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp connect failed: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.SMTP.Host}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls failed: %w", err)
		}
	}
	return client, nil
}

// buildMessage assembles the RFC 5322 message bytes.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
