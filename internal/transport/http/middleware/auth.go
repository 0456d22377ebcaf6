package middleware

import (
	"net/http"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
)

type SessionVerifier interface {
	VerifySession(token string) (domain.Session, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// sessionToken reads the credential from "Authorization: Bearer" first and
// the session cookie second. fromCookie reports which one was used.
func sessionToken(r *http.Request) (token string, fromCookie bool, err error) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false, domain.ErrSessionInvalid()
		}
		raw := strings.TrimSpace(parts[1])
		if raw == "" {
			return "", false, domain.ErrSessionInvalid()
		}
		return raw, false, nil
	}

	raw, err := security.ReadSessionToken(r)
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", false, domain.ErrUnauthorized()
	}
	return raw, true, nil
}

// Auth requires a valid session and injects it into the request context.
func Auth(verifier SessionVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _, err := sessionToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			sess, err := verifier.VerifySession(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(sess.UserID) == "" {
				writeErr(w, r, domain.ErrSessionInvalid())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalAuth attaches a session when a valid one is presented and
// otherwise lets the request through anonymously. Used where the limiter
// keys on the user when there is one.
func OptionalAuth(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _, err := sessionToken(r)
			if err == nil {
				if sess, verr := verifier.VerifySession(raw); verr == nil && sess.UserID != "" {
					r = r.WithContext(WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
