package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// resetTokenBytes gives a 64 character hex token.
const resetTokenBytes = 32

// IssueToken creates a reset token for identifier and stores it.
// Prior unredeemed tokens for the same identifier are left in place.
func (s *Service) IssueToken(ctx context.Context, identifier string) (domain.VerificationToken, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.VerificationToken{}, domain.ErrMissingField("identifier")
	}

	raw, err := newHexToken(resetTokenBytes)
	if err != nil {
		return domain.VerificationToken{}, domain.ErrRandomFailed(err)
	}

	t := domain.VerificationToken{
		Identifier: identifier,
		Token:      raw,
		Expires:    s.now().Add(s.resetTokenTTL),
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.tokens.Insert(sctx, t); err != nil {
		return domain.VerificationToken{}, err
	}
	return t, nil
}

// newHexToken returns bytesLen random bytes, hex encoded.
func newHexToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// checkExpiry deletes a stale token and reports token_expired.
// Deleting an already-consumed row is not an error.
func (s *Service) checkExpiry(ctx context.Context, t domain.VerificationToken) error {
	if !t.ExpiredAt(s.now()) {
		return nil
	}
	if err := s.tokens.Delete(ctx, t.Token); err != nil && !domain.Is(err, "invalid_or_expired_token") {
		return err
	}
	return domain.ErrTokenExpired()
}
