// Package mailer sends the two outbound emails the identity core issues:
// registration verification and password recovery. It is stateless and
// sends synchronously, returning the SMTP error; send failure is a terminal
// error of the request that triggered it.
package mailer

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

// Config configures the outbound SMTP connection.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends verification and recovery emails.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New builds a Mailer from cfg. A blank Username selects an unauthenticated
// dialer (matching gomail's own SSL-by-port-465 heuristic).
func New(cfg Config) *Mailer {
	var dialer *gomail.Dialer
	if cfg.Username == "" {
		dialer = &gomail.Dialer{Host: cfg.Host, Port: cfg.Port, SSL: cfg.Port == 465}
	} else {
		dialer = gomail.NewPlainDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return &Mailer{dialer: dialer, from: cfg.From}
}

var verificationTmpl = template.Must(template.New("verification").Parse(
	`Hello {{.Nickname}},

Confirm your registration at {{.Domain}} by visiting the link below. It expires in {{.TTLMinutes}} minutes.

{{.Domain}}/registration/confirm?token={{.Token}}
`))

var recoveryTmpl = template.Must(template.New("recovery").Parse(
	`Hello {{.Nickname}},

A password reset was requested for your account at {{.Domain}}. This link expires in {{.TTLMinutes}} minutes.

{{.Domain}}/recovery/confirm?token={{.Token}}

If you did not request this, ignore this message.
`))

type verificationData struct {
	Domain     string
	Nickname   string
	Token      string
	TTLMinutes int64
}

// SendVerification sends a registration-confirmation email.
func (m *Mailer) SendVerification(recipient, domain, subject, nickname, token string, ttlMinutes int64) error {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, verificationData{Domain: domain, Nickname: nickname, Token: token, TTLMinutes: ttlMinutes}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	return m.send(recipient, subject, buf.String())
}

// SendRecovery sends a password-recovery email.
func (m *Mailer) SendRecovery(recipient, domain, subject, nickname, token string, ttlMinutes int64) error {
	var buf bytes.Buffer
	if err := recoveryTmpl.Execute(&buf, verificationData{Domain: domain, Nickname: nickname, Token: token, TTLMinutes: ttlMinutes}); err != nil {
		return fmt.Errorf("render recovery email: %w", err)
	}
	return m.send(recipient, subject, buf.String())
}

func (m *Mailer) send(recipient, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
