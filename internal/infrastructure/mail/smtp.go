package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/application/contact"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// Inbox receives contact form messages.
	Inbox string
}

// sendFunc delivers a fully formed RFC 5322 message.
type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends password reset and contact emails over SMTP.
type SMTPNotifier struct {
	cfg  SMTPConfig
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	var a smtp.Auth
	if cfg.Username != "" {
		a = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{cfg: cfg, auth: a, send: sendMail, now: time.Now}, nil
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	body, err := RenderPasswordReset(msg.URL, msg.TTL)
	if err != nil {
		return err
	}
	return n.deliver(ctx, msg.Email, "", "Reset your password", body)
}

func (n *SMTPNotifier) SendContact(ctx context.Context, msg contact.Message) error {
	if n.cfg.Inbox == "" {
		return fmt.Errorf("CONTACT_INBOX is not configured")
	}
	body, err := RenderContact(msg.Name, msg.Email, msg.Subject, msg.Body)
	if err != nil {
		return err
	}
	return n.deliver(ctx, n.cfg.Inbox, msg.Email, msg.Subject, body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, replyTo, subject, html string) error {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprint(n.cfg.Port))
	raw, err := n.buildMessage(to, replyTo, subject, html)
	if err != nil {
		return err
	}
	if err := n.send(ctx, addr, n.auth, n.cfg.From, []string{to}, raw); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// buildMessage refuses address headers carrying line breaks. The subject
// is always Q-encoded, which escapes them.
func (n *SMTPNotifier) buildMessage(to, replyTo, subject, html string) ([]byte, error) {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(replyTo, "\r\n") {
		return nil, fmt.Errorf("mail: line break in address header")
	}

	from := n.cfg.From
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", n.cfg.FromName), n.cfg.From)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	return []byte(b.String()), nil
}

// sendMail is smtp.SendMail with the dial and the whole exchange bounded
// by ctx.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
