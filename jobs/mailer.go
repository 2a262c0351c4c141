package jobs

import (
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
)

// Mailer sends plain-text transactional email over SMTP.
type Mailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
	fromName string
}

// NewMailer constructs a Mailer. host and port address the SMTP relay; the
// username may be empty for unauthenticated relays.
func NewMailer(host string, port int, username, password, from, fromName string) *Mailer {
	return &Mailer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// Send delivers one message. A fresh MailYak instance per send keeps the
// Mailer safe for concurrent workers.
func (m *Mailer) Send(to, subject, body string) error {
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	mail := mailyak.New(m.addr, auth)
	mail.From(m.from)
	if m.fromName != "" {
		mail.FromName(m.fromName)
	}
	mail.To(to)
	mail.Subject(subject)
	mail.Plain().Set(body)
	if err := mail.Send(); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
