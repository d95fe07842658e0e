// Package mailer delivers the rendered report over SMTP. It is the only
// component that talks to the mail provider; the pipeline hands it a
// subject and a self-contained HTML body and nothing else.
package mailer

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"passportwatch/config"
)

// Service sends report emails using the SMTP settings from configuration.
type Service struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewService builds a mail service. The configuration is validated on
// send, not here, so a partially configured process can still run preview
// passes.
func NewService(cfg *config.Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Service{cfg: cfg, logger: logger}
}

// Send delivers one HTML email. A plain-text part is included for clients
// that refuse HTML. Port 465 uses implicit TLS; anything else negotiates
// STARTTLS during the session.
func (s *Service) Send(subject, htmlBody string) error {
	if err := s.cfg.ValidateSMTP(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.EmailFrom)
	msg.SetHeader("To", s.cfg.EmailTo)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", "HTML report attached. Please view this email in an HTML-capable client.")
	msg.AddAlternative("text/html", htmlBody)

	dialer := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	if s.cfg.SMTPPort == 465 {
		dialer.SSL = true
	}

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email via %s:%d: %w", s.cfg.SMTPHost, s.cfg.SMTPPort, err)
	}

	s.logger.WithFields(logrus.Fields{
		"subject": subject,
		"to":      s.cfg.EmailTo,
	}).Info("Report email sent")
	return nil
}
