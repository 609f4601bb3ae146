package email

import (
	"errors"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers one message per call over SMTP. Retrying is the caller's
// job: the alert engine makes up to three attempts per batch.
type Sender struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewSender(host string, port int, user, password, from string) *Sender {
	s := &Sender{
		from:   from,
		logger: slog.Default().With("component", "email"),
	}
	if user == "" || password == "" {
		// Leave the dialer nil: sends fail fast instead of hanging on a
		// half-configured SMTP host.
		return s
	}
	if from == "" {
		s.from = user
	}
	s.dialer = gomail.NewDialer(host, port, user, password)
	return s
}

func (s *Sender) Send(to, subject, textBody, htmlBody string) error {
	if s.dialer == nil {
		return errors.New("smtp credentials not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return err
	}
	s.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
