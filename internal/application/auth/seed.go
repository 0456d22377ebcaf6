package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// EnsureAdmin creates an admin account for local development. Safe to call
// on every start: an existing account with that email is left untouched.
// created reports whether a new account was written.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (created bool, err error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}
	if email == "" {
		return false, domain.ErrMissingField("email")
	}
	if err := checkPassword("password", password); err != nil {
		return false, err
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		if domain.Is(err, "email_already_exists") {
			return false, nil
		}
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, hashFailure(err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.Create(sctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         string(domain.RoleAdmin),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// another replica seeded first
		if domain.Is(err, "email_already_exists") {
			return false, nil
		}
		return false, err
	}

	s.audit("auth.seed_admin", map[string]string{"user_id": u.ID, "email": u.Email, "result": "success"})
	return true, nil
}
