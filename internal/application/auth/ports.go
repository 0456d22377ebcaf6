package auth

import (
	"context"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Only describes WHAT the credential subsystem needs, not HOW it's stored.
Email lookups are exact matches against the stored value.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)

	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	SetRole(ctx context.Context, userID string, role string) error
	// Delete removes the dependent member profile first, then the user.
	Delete(ctx context.Context, userID string) error
}

/*
TokenStore
----------
Single-use verification tokens (password reset).
Consume must be atomic: of two concurrent calls for the same token at most
one gets the row back, the other gets invalid_or_expired_token.
*/
type TokenStore interface {
	Insert(ctx context.Context, t domain.VerificationToken) error
	Find(ctx context.Context, token string) (domain.VerificationToken, error)
	Consume(ctx context.Context, token string) (domain.VerificationToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

// CostAware hashers report hashes made with an outdated work factor.
// SignIn upgrades such hashes after a successful match.
type CostAware interface {
	NeedsRehash(hash string) bool
}

/*
SessionSigner
-------------
Issues and verifies the signed session credential.
Used by service + auth middleware.
*/
type SessionSigner interface {
	SignSession(userID string, role string, ttl time.Duration) (token string, s domain.Session, err error)
	VerifySession(token string) (domain.Session, error)
}

/*
Notifier
--------
Email delivery. The service only builds the message content; transport
(SMTP, queue, log) lives in infrastructure.
*/
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

type PasswordResetMessage struct {
	Email string
	Token string
	URL   string
	TTL   time.Duration
}

/*
Metrics
-------
Business counters; implemented by the injected prometheus collector.
*/
type Metrics interface {
	SignInAttempt(result string)
	PasswordResetRequested()
	NotifierFailure(kind string)
}

type noopMetrics struct{}

func (noopMetrics) SignInAttempt(string)    {}
func (noopMetrics) PasswordResetRequested() {}
func (noopMetrics) NotifierFailure(string)  {}
