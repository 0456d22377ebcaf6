package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// OriginCheck validates Origin/Referer on state-changing requests that
// authenticate with the session cookie. Bearer requests and safe methods
// pass through; an empty allow-list disables the check.
func OriginCheck(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowedHosts := make(map[string]struct{})
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(strings.TrimSpace(origin)); err == nil && u.Host != "" {
			allowedHosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedHosts) == 0 || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if _, fromCookie, err := sessionToken(r); err != nil || !fromCookie {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			u, err := url.Parse(origin)
			if origin == "" || err != nil {
				writeErr(w, r, domain.ErrOriginRejected())
				return
			}
			if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
				writeErr(w, r, domain.ErrOriginRejected())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
