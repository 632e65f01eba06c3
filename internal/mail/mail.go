// Package mail delivers the one-time passcode emails used by registration and
// password reset.
package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"
)

// Sender hands one message to a mail transport.
type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// Purpose selects the wording of an OTP email.
type Purpose int

const (
	PurposeSignup Purpose = iota
	PurposeResend
	PurposeReset
)

type otpData struct {
	AppName string
	Title   string
	Intro   string
	OTP     string
	Minutes int
	Year    int
}

// Mailer renders OTP emails and sends them through a Sender.
type Mailer struct {
	sender  Sender
	appName string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// NewMailer returns a Mailer branded with appName.
func NewMailer(sender Sender, appName string) *Mailer {
	return &Mailer{
		sender:  sender,
		appName: appName,
		html:    htmltemplate.Must(htmltemplate.New("otpHTML").Parse(otpHTMLTemplate)),
		text:    texttemplate.Must(texttemplate.New("otpText").Parse(otpTextTemplate)),
	}
}

// SendOTP emails otp to the given address. validFor is shown to the reader.
func (m *Mailer) SendOTP(ctx context.Context, to, otp string, purpose Purpose, validFor time.Duration) error {
	subject, intro := m.wording(purpose)
	data := otpData{
		AppName: m.appName,
		Title:   subject,
		Intro:   intro,
		OTP:     otp,
		Minutes: int(validFor.Minutes()),
		Year:    time.Now().Year(),
	}

	var html, text bytes.Buffer
	if err := m.html.Execute(&html, data); err != nil {
		return fmt.Errorf("mail.Mailer.SendOTP: render html: %w", err)
	}
	if err := m.text.Execute(&text, data); err != nil {
		return fmt.Errorf("mail.Mailer.SendOTP: render text: %w", err)
	}

	if err := m.sender.Send(ctx, to, subject, text.String(), html.String()); err != nil {
		return fmt.Errorf("mail.Mailer.SendOTP: %w", err)
	}
	return nil
}

func (m *Mailer) wording(p Purpose) (subject, intro string) {
	switch p {
	case PurposeResend:
		return "Resend OTP - " + m.appName, "Here is your new verification code."
	case PurposeReset:
		return "Reset Password - " + m.appName, "Use this code to reset your password. If you did not ask for a reset, ignore this email."
	default:
		return "Verify your email - " + m.appName, "Use this code to finish creating your account."
	}
}

// LogSender writes messages to the log instead of delivering them.
// It is only meant for local development without an SMTP server.
type LogSender struct {
	Log *slog.Logger
}

// Send logs the plain-text body.
func (s LogSender) Send(ctx context.Context, to, subject, textBody, _ string) error {
	s.Log.InfoContext(ctx, "mail not delivered (no SMTP configured)", "to", to, "subject", subject, "body", textBody)
	return nil
}

const otpTextTemplate = `{{.Title}}

{{.Intro}}

Your OTP is: {{.OTP}}

The code expires in {{.Minutes}} minutes.

© {{.Year}} {{.AppName}}
`

const otpHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:24px;background:#f4f6fb;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;color:#0f172a;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center">
      <table role="presentation" width="480" cellspacing="0" cellpadding="0" style="background:#ffffff;border-radius:12px;padding:32px;">
        <tr><td style="font-size:20px;font-weight:600;padding-bottom:12px;">{{.Title}}</td></tr>
        <tr><td style="font-size:15px;line-height:1.5;padding-bottom:24px;">{{.Intro}}</td></tr>
        <tr><td align="center" style="font-size:32px;letter-spacing:8px;font-weight:700;padding-bottom:24px;">{{.OTP}}</td></tr>
        <tr><td style="font-size:13px;color:#64748b;">The code expires in {{.Minutes}} minutes.</td></tr>
      </table>
      <p style="font-size:12px;color:#94a3b8;">© {{.Year}} {{.AppName}}</p>
    </td></tr>
  </table>
</body>
</html>`
