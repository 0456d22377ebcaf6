package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/redis"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
)

type RateLimiter interface {
	Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (redis.Decision, error)
}

// RateLimitObserver is implemented by metrics.Collector.
type RateLimitObserver interface {
	RateLimited(scope string)
}

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit limits requests per scope and client. With a shared redis
// limiter the window is global across replicas; without one it falls back
// to an in-process httprate limiter keyed by IP. A redis failure fails open.
func RateLimit(limiter RateLimiter, cfg FixedWindowConfig, obs RateLimitObserver, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}
	if cfg.Limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	reject := func(w http.ResponseWriter, r *http.Request, retry time.Duration) {
		if obs != nil {
			obs.RateLimited(cfg.Scope)
		}
		secs := int(retry.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		writeErr(w, r, domain.WithMeta(domain.ErrRateLimited(cfg.Scope), map[string]string{
			"scope":       cfg.Scope,
			"retry_after": strconv.Itoa(secs),
		}))
	}

	if limiter == nil {
		return httprate.Limit(
			cfg.Limit,
			cfg.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				reject(w, r, cfg.Window)
			}),
		)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := limiter.Allow(r.Context(), cfg.Scope, userOrIP(r), cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).
					Str("scope", cfg.Scope).
					Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			if !dec.Allowed {
				reject(w, r, dec.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// userOrIP prefers the session user when present; otherwise the client IP.
func userOrIP(r *http.Request) string {
	if uid, ok := UserIDFromContext(r.Context()); ok {
		return "u:" + uid
	}
	return "ip:" + clientIP(r)
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr
// when the service runs behind a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
