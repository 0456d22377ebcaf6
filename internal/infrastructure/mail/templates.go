package mail

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Reset your password</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="color: #1f4e79;">Reset your password</h1>
		<p>Hello,</p>
		<p>We received a request to reset the password of your alumni account. Click the button below to choose a new one:</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.URL}}" style="background-color: #1f4e79; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset password</a>
		</div>
		<p>Or copy and paste this link into your browser:</p>
		<p style="word-break: break-all; color: #666;">{{.URL}}</p>
		<p>This link expires in {{.Expiry}}.</p>
		<p>If you did not ask for a reset you can ignore this email. Your password stays unchanged.</p>
		<hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
		<p style="color: #999; font-size: 12px;">This is an automated message, please do not reply.</p>
	</div>
</body>
</html>`))

var contactTmpl = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>{{.Subject}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>New message from the contact form</h2>
		<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
		<p><strong>Subject:</strong> {{.Subject}}</p>
		<p style="white-space: pre-wrap;">{{.Body}}</p>
	</div>
</body>
</html>`))

func RenderPasswordReset(url string, ttl time.Duration) (string, error) {
	data := struct {
		URL    string
		Expiry string
	}{
		URL:    url,
		Expiry: humanDuration(ttl),
	}

	var buf strings.Builder
	if err := passwordResetTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func RenderContact(name, email, subject, body string) (string, error) {
	data := struct {
		Name, Email, Subject, Body string
	}{name, email, subject, body}

	var buf strings.Builder
	if err := contactTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// humanDuration renders whole hours or minutes, e.g. "1 hour", "30 minutes".
func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		m := int(d.Round(time.Minute) / time.Minute)
		if m <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
}
