package memory

import (
	"context"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/application/contact"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
)

// LogNotifier writes outgoing mail to the log instead of sending it.
// Selected with MAIL_TRANSPORT=log for local development.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	logger.WithCtx(ctx).Info().
		Str("to", msg.Email).
		Str("url", msg.URL).
		Dur("ttl", msg.TTL).
		Msg("[log-mail] password reset")
	return nil
}

func (LogNotifier) SendContact(ctx context.Context, msg contact.Message) error {
	logger.WithCtx(ctx).Info().
		Str("from", msg.Email).
		Str("name", msg.Name).
		Str("subject", msg.Subject).
		Msg("[log-mail] contact form")
	return nil
}
