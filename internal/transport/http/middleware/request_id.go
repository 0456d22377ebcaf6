package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	reqctx "github.com/miharyjoe/ameua-sub001/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// maxRequestIDLen bounds ids accepted from the client.
const maxRequestIDLen = 128

// RequestID reuses a caller-supplied X-Request-Id or mints one, echoes it on
// the response and stores it in the request context for logs and errors.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(reqctx.WithRequestID(r.Context(), reqID)))
	})
}
