package alert

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/dfgiraldo/movalert/internal/config"
	"github.com/dfgiraldo/movalert/internal/news"
)

// EmailChannel sends alerts over SMTP with plain auth.
type EmailChannel struct {
	host       string
	port       int
	user       string
	password   string
	recipients []string

	// send exists so tests can intercept the SMTP call.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an email channel from config, reading
// credentials from the configured environment variables.
func NewEmailChannel(cfg config.EmailAlerts) *EmailChannel {
	return &EmailChannel{
		host:       cfg.SMTPHost,
		port:       cfg.SMTPPort,
		user:       os.Getenv(cfg.UserEnv),
		password:   os.Getenv(cfg.PasswordEnv),
		recipients: cfg.Recipients,
		send:       smtp.SendMail,
	}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(item news.Item) error {
	if e.host == "" || e.user == "" || len(e.recipients) == 0 {
		return fmt.Errorf("email channel not configured")
	}

	severity := "unknown"
	if item.Enrichment != nil {
		severity = string(item.Enrichment.Severity)
	}
	subject := fmt.Sprintf("[movalert %s] %s", severity, item.Title)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.user)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(FormatMessage(item))

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	if err := e.send(addr, auth, e.user, e.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
