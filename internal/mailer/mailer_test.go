package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnauthenticatedDialerSkipsAuth(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 25, From: "no-reply@example.com"})
	assert.Equal(t, "smtp.example.com", m.dialer.Host)
	assert.Equal(t, 25, m.dialer.Port)
	assert.False(t, m.dialer.SSL)
	assert.Equal(t, "no-reply@example.com", m.from)
}

func TestNewSelectsSSLForImplicitTLSPort(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 465, From: "no-reply@example.com"})
	assert.True(t, m.dialer.SSL)
}

func TestNewAuthenticatedDialerCarriesCredentials(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 587, Username: "svc", Password: "secret", From: "no-reply@example.com"})
	assert.Equal(t, "svc", m.dialer.Username)
	assert.Equal(t, "secret", m.dialer.Password)
}

func TestSendVerificationFailsFastOnUnreachableHost(t *testing.T) {
	// Port 0 on loopback never accepts a connection, so DialAndSend fails
	// immediately without needing a real SMTP server.
	m := New(Config{Host: "127.0.0.1", Port: 0, From: "no-reply@example.com"})
	err := m.SendVerification("user@example.com", "example.com", "Confirm your account", "alice", "tok", 30)
	assert.Error(t, err)
}

func TestSendRecoveryFailsFastOnUnreachableHost(t *testing.T) {
	m := New(Config{Host: "127.0.0.1", Port: 0, From: "no-reply@example.com"})
	err := m.SendRecovery("user@example.com", "example.com", "Reset your password", "alice", "tok", 15)
	assert.Error(t, err)
}
