package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/infrastructure/security"
)

// ---- fakes ----

type fakeVerifier struct {
	sess   domain.Session
	err    error
	calls  int
	gotTok string
}

func (f *fakeVerifier) VerifySession(token string) (domain.Session, error) {
	f.calls++
	f.gotTok = token
	return f.sess, f.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(rw http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
	rw.WriteHeader(http.StatusTeapot)
}

// next handler checks context injection
type nextRecorder struct {
	calls int
	sess  *domain.Session
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.sess = SessionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuthMW(t *testing.T, verifier SessionVerifier, req *http.Request) (*httptest.ResponseRecorder, *writeErrRecorder, *nextRecorder) {
	t.Helper()

	rr := httptest.NewRecorder()
	we := &writeErrRecorder{}
	nx := &nextRecorder{}

	Auth(verifier, we.fn)(nx).ServeHTTP(rr, req)
	return rr, we, nx
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if !domain.Is(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// ---- tests ----

func TestAuth_NoCredential_ReturnsUnauthorized(t *testing.T) {
	v := &fakeVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)

	_, we, nx := runAuthMW(t, v, req)

	if we.calls != 1 || nx.calls != 0 || v.calls != 0 {
		t.Fatalf("writeErr=%d next=%d verify=%d", we.calls, nx.calls, v.calls)
	}
	requireCode(t, we.last, "unauthorized")
}

func TestAuth_BadAuthorizationScheme_ReturnsSessionInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")

	_, we, nx := runAuthMW(t, &fakeVerifier{}, req)

	if nx.calls != 0 {
		t.Fatalf("next should not run")
	}
	requireCode(t, we.last, "session_invalid")
}

func TestAuth_BearerButEmptyToken_ReturnsSessionInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer   ")

	_, we, _ := runAuthMW(t, &fakeVerifier{}, req)
	requireCode(t, we.last, "session_invalid")
}

func TestAuth_VerifierError_Propagates(t *testing.T) {
	v := &fakeVerifier{err: domain.ErrSessionExpired()}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")

	_, we, nx := runAuthMW(t, v, req)

	if nx.calls != 0 || v.gotTok != "tok" {
		t.Fatalf("next=%d tok=%q", nx.calls, v.gotTok)
	}
	requireCode(t, we.last, "session_expired")
}

func TestAuth_SessionWithoutUser_Rejected(t *testing.T) {
	v := &fakeVerifier{sess: domain.Session{Role: "admin"}}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")

	_, we, _ := runAuthMW(t, v, req)
	requireCode(t, we.last, "session_invalid")
}

func TestAuth_Bearer_InjectsSession(t *testing.T) {
	v := &fakeVerifier{sess: domain.Session{UserID: "u1", Role: "user"}}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer tok")

	rr, we, nx := runAuthMW(t, v, req)

	if we.calls != 0 || nx.calls != 1 || rr.Code != http.StatusOK {
		t.Fatalf("writeErr=%d next=%d code=%d", we.calls, nx.calls, rr.Code)
	}
	if nx.sess == nil || nx.sess.UserID != "u1" || nx.sess.Role != "user" {
		t.Fatalf("unexpected session %+v", nx.sess)
	}
}

func TestAuth_Cookie_InjectsSession(t *testing.T) {
	v := &fakeVerifier{sess: domain.Session{UserID: "u2", Role: "admin"}}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "cookie-tok"})

	_, _, nx := runAuthMW(t, v, req)

	if v.gotTok != "cookie-tok" || nx.sess == nil || nx.sess.UserID != "u2" {
		t.Fatalf("tok=%q sess=%+v", v.gotTok, nx.sess)
	}
}

func TestAuth_BearerWinsOverCookie(t *testing.T) {
	v := &fakeVerifier{sess: domain.Session{UserID: "u1", Role: "user"}}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer header-tok")
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "cookie-tok"})

	runAuthMW(t, v, req)

	if v.gotTok != "header-tok" {
		t.Fatalf("expected bearer token, got %q", v.gotTok)
	}
}

func TestAuth_WithRealSigner(t *testing.T) {
	signer := security.NewSessionSigner("test-secret-test-secret-test-secret", "ameua")
	tok, _, err := signer.SignSession("u9", "admin", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	_, we, nx := runAuthMW(t, signer, req)

	if we.calls != 0 || nx.sess == nil || nx.sess.UserID != "u9" || nx.sess.Role != "admin" {
		t.Fatalf("writeErr=%v sess=%+v", we.last, nx.sess)
	}
}

func TestOptionalAuth(t *testing.T) {
	t.Run("anonymous passes", func(t *testing.T) {
		nx := &nextRecorder{}
		OptionalAuth(&fakeVerifier{})(nx).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if nx.calls != 1 || nx.sess != nil {
			t.Fatalf("calls=%d sess=%+v", nx.calls, nx.sess)
		}
	})

	t.Run("invalid token passes anonymously", func(t *testing.T) {
		nx := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer x")
		OptionalAuth(&fakeVerifier{err: errors.New("bad")})(nx).ServeHTTP(httptest.NewRecorder(), req)
		if nx.calls != 1 || nx.sess != nil {
			t.Fatalf("calls=%d sess=%+v", nx.calls, nx.sess)
		}
	})

	t.Run("valid token attaches session", func(t *testing.T) {
		nx := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer x")
		OptionalAuth(&fakeVerifier{sess: domain.Session{UserID: "u1", Role: "user"}})(nx).ServeHTTP(httptest.NewRecorder(), req)
		if nx.sess == nil || nx.sess.UserID != "u1" {
			t.Fatalf("sess=%+v", nx.sess)
		}
	})
}

func TestSessionFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if SessionFromContext(req.Context()) != nil {
		t.Fatalf("expected nil session")
	}
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Fatalf("expected no user id")
	}
}
