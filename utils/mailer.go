package utils

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	SkipTLSVerify bool
}

// SMTPMailer sends html mail over STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(from string, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.cfg.Host == "" || from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SURVEY_EMAIL_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.SkipTLSVerify,
	}
	return d.DialAndSend(msg)
}
