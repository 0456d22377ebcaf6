package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/redis"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

type countingObserver struct{ scopes []string }

func (o *countingObserver) RateLimited(scope string) { o.scopes = append(o.scopes, scope) }

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, string, int, time.Duration) (redis.Decision, error) {
	return redis.Decision{}, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_Redis_BlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	obs := &countingObserver{}
	lim := redis.NewFixedWindowLimiter(redis.NewFromClient(rdb))
	h := RateLimit(lim, FixedWindowConfig{Scope: "signin", Limit: 2, Window: time.Minute}, obs, response.WriteError)(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:2222").Code)

	rr := hit(h, "10.0.0.1:3333")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Error.Code)
	assert.Equal(t, "signin", body.Error.Meta["scope"])
	assert.Equal(t, []string{"signin"}, obs.scopes)

	// other clients have their own window
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1111").Code)
}

func TestRateLimit_Redis_KeysOnSessionUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim := redis.NewFixedWindowLimiter(redis.NewFromClient(rdb))
	h := RateLimit(lim, FixedWindowConfig{Scope: "change", Limit: 1, Window: time.Minute}, nil, response.WriteError)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithSession(req.Context(), domain.Session{UserID: "u1", Role: "user"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, mr.Exists("ameua:rl:change:u:u1"))
}

func TestRateLimit_BehindOptionalAuth_SignedInUserSharesOneWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	signer := security.NewSessionSigner("test-secret-test-secret-test-secret", "ameua")
	tok, _, err := signer.SignSession("u7", "user", time.Hour)
	require.NoError(t, err)

	lim := redis.NewFixedWindowLimiter(redis.NewFromClient(rdb))
	rl := RateLimit(lim, FixedWindowConfig{Scope: "contact", Limit: 1, Window: time.Minute}, nil, response.WriteError)
	h := OptionalAuth(signer)(rl(okHandler()))

	send := func(remote, bearer string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
		req.RemoteAddr = remote
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	// same user, different addresses
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1", tok))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:1", tok))
	assert.True(t, mr.Exists("ameua:rl:contact:u:u7"))

	// anonymous and bad tokens fall back to the address
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2", "forged"))
	assert.True(t, mr.Exists("ameua:rl:contact:ip:10.0.0.1"))
}

func TestRateLimit_RedisFailure_FailsOpen(t *testing.T) {
	h := RateLimit(failingLimiter{}, FixedWindowConfig{Scope: "signin", Limit: 1}, nil, response.WriteError)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	}
}

func TestRateLimit_InProcessFallback(t *testing.T) {
	obs := &countingObserver{}
	h := RateLimit(nil, FixedWindowConfig{Scope: "forgot", Limit: 1, Window: time.Minute}, obs, response.WriteError)(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.9:1").Code)
	rr := hit(h, "10.0.0.9:2")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, []string{"forgot"}, obs.scopes)
}

func TestRateLimit_DisabledWhenLimitZero(t *testing.T) {
	h := RateLimit(failingLimiter{}, FixedWindowConfig{Scope: "x", Limit: 0}, nil, response.WriteError)(okHandler())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "1.1.1.1:1").Code)
	}
}
