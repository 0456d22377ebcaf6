package auth

import (
	"context"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
)

// SignIn authenticates a user and issues a session.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
// The artificial delay always runs first and is not cancellable.
func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	const action = "auth.sign_in"

	s.sleep(s.signInDelay)

	email = strings.TrimSpace(email)
	if email == "" {
		return SignInResult{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return SignInResult{}, domain.ErrMissingField("password")
	}

	fail := func(reason string) (SignInResult, error) {
		s.metrics.SignInAttempt("invalid_credentials")
		s.audit(action, map[string]string{
			"email":  email,
			"result": "error",
			"reason": reason,
		})
		return SignInResult{}, domain.ErrInvalidCredentials()
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByEmail(sctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			// Hide not-found behind invalid credentials
			return fail("unknown_email")
		}
		s.metrics.SignInAttempt("error")
		return SignInResult{}, err
	}

	// accounts created by an external provider have no local password
	if u.PasswordHash == "" {
		return fail("no_password")
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return fail("password_mismatch")
	}
	s.upgradeHash(ctx, u, password)

	token, sess, err := s.signer.SignSession(u.ID, u.Role, s.sessionTTL)
	if err != nil {
		s.metrics.SignInAttempt("error")
		return SignInResult{}, domain.ErrSessionSignFailed(err)
	}

	s.metrics.SignInAttempt("success")
	s.audit(action, map[string]string{
		"user_id": u.ID,
		"role":    u.Role,
		"result":  "success",
	})

	return SignInResult{
		User:     u.Public(),
		Session:  sess,
		Token:    token,
		Redirect: HomeRoute,
	}, nil
}

// upgradeHash re-hashes the password when the configured cost changed since
// it was stored. Failures are logged and never fail the sign-in.
func (s *Service) upgradeHash(ctx context.Context, u domain.User, password string) {
	ca, ok := s.hasher.(CostAware)
	if !ok || !ca.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("password rehash failed")
		return
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.users.UpdatePasswordHash(sctx, u.ID, hash); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("password rehash not stored")
		return
	}
	s.audit("auth.password_rehash", map[string]string{"user_id": u.ID, "result": "success"})
}
