package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/application/contact"
	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/memory"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/middleware"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

// captureNotifier keeps outgoing mail so tests can follow reset links.
type captureNotifier struct {
	mu       sync.Mutex
	resets   []auth.PasswordResetMessage
	contacts []contact.Message
	err      error
}

func (n *captureNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, msg)
	return n.err
}

func (n *captureNotifier) SendContact(ctx context.Context, msg contact.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.contacts = append(n.contacts, msg)
	return nil
}

type handlerEnv struct {
	auth     *AuthHandler
	admin    *AdminHandler
	contact  *ContactHandler
	svc      *auth.Service
	users    *memory.UserRepo
	tokens   *memory.TokenStore
	hasher   *security.BcryptHasher
	signer   *security.SessionSigner
	notifier *captureNotifier
}

func newHandlerEnv(t *testing.T, secureCookies bool) *handlerEnv {
	t.Helper()

	env := &handlerEnv{
		users:    memory.NewUserRepo(),
		tokens:   memory.NewTokenStore(),
		hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		signer:   security.NewSessionSigner("handler-test-secret-0123456789abcdef", "ameua"),
		notifier: &captureNotifier{},
	}
	env.svc = auth.NewService(env.users, env.tokens, env.hasher, env.signer, env.notifier, auth.Config{
		SessionTTL:           time.Hour,
		PasswordResetBaseURL: "https://alumni.test/reset-password?token=",
	}).
		WithClock(nil, func(time.Duration) {}).
		WithSyncDelivery()

	env.auth = NewAuthHandler(env.svc, time.Hour, secureCookies)
	env.admin = NewAdminHandler(env.svc)
	env.contact = NewContactHandler(contact.NewService(env.notifier, time.Second))
	return env
}

// seed stores a user whose password is hashed with the env hasher.
func (e *handlerEnv) seed(t *testing.T, id, name, email, password, role string) domain.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.users.Create(context.Background(), domain.User{
		ID: id, Name: name, Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		rdr = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", rr.Body.String(), err)
	}
}

func mustReadError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorPayload {
	t.Helper()

	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body failed; body=%s", rr.Body.String())
	}
	return body.Error
}

// readCookie finds cookie by name from response headers.
func readCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withSession(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), domain.Session{UserID: userID, Role: role}))
}

// withURLParam injects chi URL param (e.g. /users/{id}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}
