package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// SessionSigner issues HS256 session tokens carrying the user id and the
// role held at sign-in.
type SessionSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSessionSigner(secret string, issuer string) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

type sessionClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *SessionSigner) SignSession(userID string, role string, ttl time.Duration) (string, domain.Session, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := sessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.Session{}, domain.ErrSessionSignFailed(err)
	}
	return signed, domain.Session{UserID: userID, Role: role, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (s *SessionSigner) VerifySession(token string) (domain.Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrSessionInvalid()
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, domain.ErrSessionExpired()
		}
		return domain.Session{}, domain.ErrSessionInvalid()
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return domain.Session{}, domain.ErrSessionInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return domain.Session{
		UserID:    claims.UserID,
		Role:      claims.Role,
		ExpiresAt: exp,
	}, nil
}
