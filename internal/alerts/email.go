package alerts

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"tweetwatch/internal/config"
)

// Notifier is the operator-alerting surface consumed by the sweep engine.
type Notifier interface {
	AuthExpired(detail string) error
}

// Mailer emails the operator when the shared social-media credential stops
// working. Sweeps keep running without the account in the meantime; the alert
// exists because only a human can fix stale credentials (via /config-account).
type Mailer struct {
	config *config.Config
}

// Ensure Mailer implements Notifier
var _ Notifier = (*Mailer)(nil)

// NewMailer creates a mailer from SMTP configuration.
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{config: cfg}
}

// Enabled reports whether an alert recipient is configured.
func (m *Mailer) Enabled() bool {
	return m.config.AlertEmail != ""
}

// AuthExpired sends the credential-expiry alert.
func (m *Mailer) AuthExpired(detail string) error {
	if !m.Enabled() {
		return nil
	}

	body := fmt.Sprintf(
		"The shared X/Twitter credential stopped working at %s.\n\n"+
			"Detail: %s\n\n"+
			"Followed accounts are skipped until an administrator re-authenticates "+
			"with /config-account.\n",
		time.Now().UTC().Format(time.RFC3339), detail)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.SMTPUsername)
	msg.SetHeader("To", m.config.AlertEmail)
	msg.SetHeader("Subject", "Tweetwatch: X/Twitter authentication expired")
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.config.SMTPHost, m.config.SMTPPort, m.config.SMTPUsername, m.config.SMTPPassword)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send auth alert: %w", err)
	}

	return nil
}
