package middleware

import (
	"context"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

type ctxKey string

const ctxSession ctxKey = "session"

// WithSession attaches the verified session to ctx.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

// SessionFromContext returns the session set by Auth, or nil for an
// anonymous request.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, ok := ctx.Value(ctxSession).(domain.Session)
	if !ok || s.UserID == "" {
		return nil
	}
	return &s
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	if s := SessionFromContext(ctx); s != nil {
		return s.UserID, true
	}
	return "", false
}
