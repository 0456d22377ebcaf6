package auth

import (
	"context"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
)

// ResetRequestedMessage is returned for every forgot-password request,
// whether or not the email belongs to an account.
const ResetRequestedMessage = "If an account exists for that email, a password reset link has been sent."

// RequestPasswordReset issues a reset token for a known email and hands it
// to the notifier. The caller always gets ResetRequestedMessage.
// IMPORTANT: non-enumerating. Only failures that happen regardless of the
// email's existence (e.g. the user lookup itself) are returned.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const action = "auth.password_reset.request"

	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.ErrMissingField("email")
	}
	s.metrics.PasswordResetRequested()

	sctx, cancel := s.storeCtx(ctx)
	u, err := s.users.GetByEmail(sctx, email)
	cancel()
	if err != nil {
		if domain.Is(err, "user_not_found") {
			s.audit(action, map[string]string{"email": email, "result": "unknown_email"})
			return ResetRequestedMessage, nil
		}
		return "", err
	}

	t, err := s.IssueToken(ctx, u.Email)
	if err != nil {
		logger.WithCtx(ctx).Error().Err(err).Str("user_id", u.ID).Msg("reset token issue failed")
		s.audit(action, map[string]string{"user_id": u.ID, "result": "error", "error_code": domainCode(err)})
		return ResetRequestedMessage, nil
	}

	msg := PasswordResetMessage{
		Email: u.Email,
		Token: t.Token,
		URL:   s.passwordResetBaseURL + t.Token,
		TTL:   s.resetTokenTTL,
	}
	userID := u.ID
	s.deliver(func() {
		mctx, cancel := s.mailCtx(ctx)
		defer cancel()
		if err := s.notifier.SendPasswordReset(mctx, msg); err != nil {
			s.metrics.NotifierFailure("password_reset")
			logger.WithCtx(ctx).Warn().Err(err).Str("user_id", userID).Msg("password reset email delivery failed")
		}
	})

	s.audit(action, map[string]string{"user_id": u.ID, "result": "success"})
	return ResetRequestedMessage, nil
}

// ValidateResetToken reports whether token can still be redeemed without
// consuming it. Expired tokens are deleted.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingField("token")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	t, err := s.tokens.Find(sctx, token)
	if err != nil {
		return err
	}
	return s.checkExpiry(sctx, t)
}

// RedeemPasswordReset consumes the token and sets a new password.
// Outcomes: invalid_or_expired_token, token_expired, or success.
func (s *Service) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	const action = "auth.password_reset.redeem"

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if err := checkPassword("password", newPassword); err != nil {
		return err
	}

	audit := func(result string, err error, extra map[string]string) {
		fields := map[string]string{"result": result}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(action, fields)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	// Consume deletes the row atomically; a concurrent redeem of the same
	// token sees invalid_or_expired_token.
	t, err := s.tokens.Consume(sctx, token)
	if err != nil {
		audit("error", err, nil)
		return err
	}
	if err := s.checkExpiry(sctx, t); err != nil {
		audit("error", err, nil)
		return err
	}

	u, err := s.users.GetByEmail(sctx, t.Identifier)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			err = domain.ErrInvalidOrExpiredToken()
		}
		audit("error", err, nil)
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		err = hashFailure(err)
		audit("error", err, map[string]string{"user_id": u.ID})
		return err
	}

	if err := s.users.UpdatePasswordHash(sctx, u.ID, hash); err != nil {
		audit("error", err, map[string]string{"user_id": u.ID})
		return err
	}

	audit("success", nil, map[string]string{"user_id": u.ID})
	return nil
}

// ChangePassword changes the password of a signed-in user.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUnauthorized()
	}
	if oldPassword == "" {
		return domain.ErrMissingField("old_password")
	}
	if err := checkPassword("new_password", newPassword); err != nil {
		return err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByID(sctx, userID)
	if err != nil {
		return err
	}

	if u.PasswordHash == "" || s.hasher.Compare(u.PasswordHash, oldPassword) != nil {
		return domain.ErrInvalidCredentials()
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return hashFailure(err)
	}

	if err := s.users.UpdatePasswordHash(sctx, userID, newHash); err != nil {
		return err
	}

	s.audit("auth.password_change", map[string]string{"user_id": userID, "result": "success"})
	return nil
}
