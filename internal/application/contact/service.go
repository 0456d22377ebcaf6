package contact

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// Message is a visitor's note to the association inbox.
type Message struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

type Sender interface {
	SendContact(ctx context.Context, msg Message) error
}

type Service struct {
	sender  Sender
	timeout time.Duration
}

func NewService(sender Sender, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{sender: sender, timeout: timeout}
}

// Submit forwards msg to the association. Unlike password reset, a
// delivery failure is reported to the caller so the visitor can retry.
func (s *Service) Submit(ctx context.Context, msg Message) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)

	switch {
	case msg.Name == "":
		return domain.ErrMissingField("name")
	case msg.Email == "":
		return domain.ErrMissingField("email")
	case !bareAddress(msg.Email):
		return domain.ErrInvalidField("email", "invalid format")
	case msg.Body == "":
		return domain.ErrMissingField("message")
	}
	if msg.Subject == "" {
		msg.Subject = "Contact form: " + msg.Name
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sender.SendContact(ctx, msg); err != nil {
		return domain.ErrDeliveryFailed(err)
	}
	return nil
}

// bareAddress accepts a plain addr-spec only. The address ends up in a
// Reply-To header, so display names and line breaks are refused.
func bareAddress(s string) bool {
	if strings.ContainsAny(s, "\r\n") {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Name == "" && a.Address == s
}
