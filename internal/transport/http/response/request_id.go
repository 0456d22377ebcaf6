package response

import (
	"net/http"

	reqctx "github.com/miharyjoe/ameua-sub001/internal/pkg/context"
)

// RequestIDFromContext returns the id set by the RequestID middleware.
func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}
