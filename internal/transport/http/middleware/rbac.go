package middleware

import (
	"net/http"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
)

// RequireRole admits requests whose session role ranks at least minRole.
// Assumes Auth() has already run.
func RequireRole(minRole string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(SessionFromContext(r.Context()), minRole); err != nil {
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
