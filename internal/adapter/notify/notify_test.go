package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestSMTPNotifier(sendErr error) (*SMTPNotifier, *[]sentMail) {
	var sent []sentMail
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 2525, From: "site@agency.test"}, "https://agency.test/")
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	}
	return n, &sent
}

func TestSMTPNotifier_WelcomeWithVerification(t *testing.T) {
	n, sent := newTestSMTPNotifier(nil)

	err := n.SendWelcomeEmail(context.Background(), port.WelcomeEmail{
		Email: "new@x.com", Name: "New User", VerificationToken: "tok123",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "mail.local:2525", m.addr)
	assert.Equal(t, []string{"new@x.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: Welcome")
	assert.Contains(t, m.msg, "Hello New User")
	assert.Contains(t, m.msg, "https://agency.test/verify-email?token=tok123")
}

func TestSMTPNotifier_WelcomeWithoutVerification(t *testing.T) {
	n, sent := newTestSMTPNotifier(nil)

	require.NoError(t, n.SendWelcomeEmail(context.Background(), port.WelcomeEmail{Email: "o@x.com"}))
	assert.NotContains(t, (*sent)[0].msg, "verify-email")
	assert.Contains(t, (*sent)[0].msg, "Hello o@x.com")
}

func TestSMTPNotifier_ResetLink(t *testing.T) {
	n, sent := newTestSMTPNotifier(nil)

	require.NoError(t, n.SendPasswordResetEmail(context.Background(), "a@x.com", "r t"))
	assert.Contains(t, (*sent)[0].msg, "https://agency.test/reset-password?token=r+t")
}

func TestSMTPNotifier_SendError(t *testing.T) {
	n, _ := newTestSMTPNotifier(errors.New("relay down"))

	err := n.SendWelcomeEmail(context.Background(), port.WelcomeEmail{Email: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier("http://localhost:3000")

	assert.NoError(t, n.SendWelcomeEmail(context.Background(), port.WelcomeEmail{Email: "a@x.com"}))
	assert.NoError(t, n.SendPasswordResetEmail(context.Background(), "a@x.com", "tok"))
}
