// Package notify sends transactional email for account flows.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/arturoeanton/agency-backoffice/internal/port"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`Hello {{.Name}},

Welcome aboard! Your account has been created.
{{if .VerifyURL}}
Please confirm your email address by opening the link below:

{{.VerifyURL}}
{{end}}
See you soon.
`))

var resetTmpl = template.Must(template.New("reset").Parse(`Hello,

We received a request to reset your password. Open the link below to choose
a new one. The link expires in one hour.

{{.ResetURL}}

If you did not ask for this, you can ignore this email.
`))

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers mail through an SMTP relay.
type SMTPNotifier struct {
	cfg      SMTPConfig
	baseURL  string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a notifier; links in emails point at baseURL.
func NewSMTPNotifier(cfg SMTPConfig, baseURL string) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, baseURL: strings.TrimSuffix(baseURL, "/"), sendMail: smtp.SendMail}
}

// SendWelcomeEmail implements port.Notifier.
func (n *SMTPNotifier) SendWelcomeEmail(_ context.Context, msg port.WelcomeEmail) error {
	body, err := renderWelcome(n.baseURL, msg)
	if err != nil {
		return err
	}
	return n.send(msg.Email, "Welcome", body)
}

// SendPasswordResetEmail implements port.Notifier.
func (n *SMTPNotifier) SendPasswordResetEmail(_ context.Context, email, token string) error {
	body, err := renderReset(n.baseURL, token)
	if err != nil {
		return err
	}
	return n.send(email, "Reset your password", body)
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(body)

	if err := n.sendMail(addr, auth, n.cfg.From, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogNotifier writes emails to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogNotifier struct {
	baseURL string
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(baseURL string) *LogNotifier {
	return &LogNotifier{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// SendWelcomeEmail implements port.Notifier.
func (n *LogNotifier) SendWelcomeEmail(ctx context.Context, msg port.WelcomeEmail) error {
	body, err := renderWelcome(n.baseURL, msg)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "welcome email (not sent, smtp disabled)", "to", msg.Email, "body", body)
	return nil
}

// SendPasswordResetEmail implements port.Notifier.
func (n *LogNotifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	body, err := renderReset(n.baseURL, token)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "password reset email (not sent, smtp disabled)", "to", email, "body", body)
	return nil
}

func renderWelcome(baseURL string, msg port.WelcomeEmail) (string, error) {
	data := struct {
		Name      string
		VerifyURL string
	}{Name: msg.Name}
	if data.Name == "" {
		data.Name = msg.Email
	}
	if msg.VerificationToken != "" {
		data.VerifyURL = baseURL + "/verify-email?token=" + url.QueryEscape(msg.VerificationToken)
	}

	var buf bytes.Buffer
	if err := welcomeTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render welcome email: %w", err)
	}
	return buf.String(), nil
}

func renderReset(baseURL, token string) (string, error) {
	data := struct{ ResetURL string }{ResetURL: baseURL + "/reset-password?token=" + url.QueryEscape(token)}

	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}
