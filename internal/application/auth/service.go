package auth

import (
	"context"
	"sync"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

const (
	defaultSessionTTL    = 30 * 24 * time.Hour
	defaultSignInDelay   = 2 * time.Second
	defaultResetTokenTTL = time.Hour
	defaultStoreTimeout  = 5 * time.Second
	defaultMailTimeout   = 10 * time.Second

	// HomeRoute is where the UI is sent after a successful sign-in.
	HomeRoute = "/"
)

type Service struct {
	users    UserRepo
	tokens   TokenStore
	hasher   PasswordHasher
	signer   SessionSigner
	notifier Notifier
	metrics  Metrics

	audit func(action string, fields map[string]string)
	now   func() time.Time
	sleep func(time.Duration)

	// background email deliveries, drained on shutdown
	deliveries sync.WaitGroup
	async      bool

	sessionTTL    time.Duration
	signInDelay   time.Duration
	resetTokenTTL time.Duration
	storeTimeout  time.Duration
	mailTimeout   time.Duration

	// e.g. https://alumni.example.org/reset-password?token=
	passwordResetBaseURL string
}

type Config struct {
	SessionTTL            time.Duration
	SignInDelay           time.Duration
	PasswordResetTokenTTL time.Duration
	PasswordResetBaseURL  string
	StoreTimeout          time.Duration
	MailTimeout           time.Duration
}

func NewService(
	users UserRepo,
	tokens TokenStore,
	hasher PasswordHasher,
	signer SessionSigner,
	notifier Notifier,
	cfg Config,
) *Service {
	auditFn := func(string, map[string]string) {}

	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	delay := cfg.SignInDelay
	if delay <= 0 {
		delay = defaultSignInDelay
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTokenTTL
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	mailTimeout := cfg.MailTimeout
	if mailTimeout <= 0 {
		mailTimeout = defaultMailTimeout
	}

	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		signer:   signer,
		notifier: notifier,
		metrics:  noopMetrics{},
		audit:    auditFn,
		now:      time.Now,
		sleep:    time.Sleep,
		async:    true,

		sessionTTL:    sessionTTL,
		signInDelay:   delay,
		resetTokenTTL: resetTTL,
		storeTimeout:  storeTimeout,
		mailTimeout:   mailTimeout,

		passwordResetBaseURL: cfg.PasswordResetBaseURL,
	}
}

type SignInResult struct {
	User     domain.PublicUser
	Session  domain.Session
	Token    string
	Redirect string
}

type SignUpResult struct {
	User   domain.PublicUser
	SignIn SignInResult
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithMetrics(m Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// WithClock replaces the time source and the sign-in throttle sleeper.
func (s *Service) WithClock(now func() time.Time, sleep func(time.Duration)) *Service {
	if now != nil {
		s.now = now
	}
	if sleep != nil {
		s.sleep = sleep
	}
	return s
}

// WithSyncDelivery makes password reset emails go out before
// RequestPasswordReset returns. Used by tests and one-shot tools.
func (s *Service) WithSyncDelivery() *Service {
	s.async = false
	return s
}

// WaitDeliveries blocks until queued email deliveries finish or ctx is done.
func (s *Service) WaitDeliveries(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.deliveries.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) deliver(fn func()) {
	if !s.async {
		fn()
		return
	}
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		fn()
	}()
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// mailCtx outlives the request so queued deliveries are not cut off
// when the handler returns; request-scoped values are kept.
func (s *Service) mailCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
}

// domainCode is the error code recorded in audit events.
func domainCode(err error) string {
	switch {
	case err == nil:
		return ""
	case domain.CodeOf(err) != "":
		return domain.CodeOf(err)
	default:
		return "non_domain_error"
	}
}
