package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

func TestSessionSigner_SignAndVerify_Success(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	tok, sess, err := s.SignSession("u1", "admin", 2*time.Minute)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected non-empty token")
	}
	if sess.UserID != "u1" || sess.Role != "admin" || sess.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := s.VerifySession(tok)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if got.UserID != "u1" || got.Role != "admin" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", got.ExpiresAt, sess.ExpiresAt)
	}
}

func TestSessionSigner_Verify_Expired(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	tok, _, err := s.SignSession("u1", "user", -1*time.Second)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	_, verr := s.VerifySession(tok)
	if !domain.Is(verr, "session_expired") {
		t.Fatalf("expected session_expired, got %v", verr)
	}
}

func TestSessionSigner_Verify_ClockControlsExpiry(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	tok, _, err := s.SignSession("u1", "user", time.Hour)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	s.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := s.VerifySession(tok); err != nil {
		t.Fatalf("expected valid before expiry, got %v", err)
	}

	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := s.VerifySession(tok); !domain.Is(err, "session_expired") {
		t.Fatalf("expected session_expired, got %v", err)
	}
}

func TestSessionSigner_Verify_WrongSecret(t *testing.T) {
	t.Parallel()

	s1 := NewSessionSigner("secret1", "alumni")
	s2 := NewSessionSigner("secret2", "alumni")

	tok, _, err := s1.SignSession("u1", "user", time.Minute)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}
	if _, err := s2.VerifySession(tok); !domain.Is(err, "session_invalid") {
		t.Fatalf("expected session_invalid, got %v", err)
	}
}

func TestSessionSigner_Verify_WrongIssuer(t *testing.T) {
	t.Parallel()

	s1 := NewSessionSigner("secret", "someone-else")
	s2 := NewSessionSigner("secret", "alumni")

	tok, _, _ := s1.SignSession("u1", "user", time.Minute)
	if _, err := s2.VerifySession(tok); !domain.Is(err, "session_invalid") {
		t.Fatalf("expected session_invalid, got %v", err)
	}
}

func TestSessionSigner_Verify_Garbage(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	for _, tok := range []string{"", "abc", "a.b.c", strings.Repeat("x", 200)} {
		if _, err := s.VerifySession(tok); !domain.Is(err, "session_invalid") {
			t.Fatalf("token %q: expected session_invalid, got %v", tok, err)
		}
	}
}

func TestSessionSigner_Verify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	claims := sessionClaims{
		UserID: "u1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "alumni",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}
	if _, err := s.VerifySession(tok); !domain.Is(err, "session_invalid") {
		t.Fatalf("expected session_invalid, got %v", err)
	}
}

func TestSessionSigner_Verify_MissingUserID(t *testing.T) {
	t.Parallel()

	s := NewSessionSigner("secret", "alumni")
	claims := sessionClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "alumni",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if _, err := s.VerifySession(tok); !domain.Is(err, "session_invalid") {
		t.Fatalf("expected session_invalid, got %v", err)
	}
}
