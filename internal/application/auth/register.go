package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// Password bounds apply to sign-up, reset and change. The upper bound is
// bcrypt's and counts bytes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

func checkPassword(field, pw string) error {
	if pw == "" {
		return domain.ErrMissingField(field)
	}
	if len(pw) < MinPasswordLength {
		return domain.ErrWeakPassword("min length 8")
	}
	if len(pw) > MaxPasswordBytes {
		return domain.ErrWeakPassword("max length 72 bytes")
	}
	return nil
}

// hashFailure keeps domain errors from the hasher and wraps the rest.
func hashFailure(err error) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	return domain.ErrHashFailed(err)
}

// SignUp creates a user with role "user" and signs them in with the same
// credentials. The plaintext password is used once and never stored.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (SignUpResult, error) {
	const action = "auth.sign_up"

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return SignUpResult{}, domain.ErrMissingField("name")
	}
	if email == "" {
		return SignUpResult{}, domain.ErrMissingField("email")
	}
	if !strings.Contains(email, "@") {
		return SignUpResult{}, domain.ErrInvalidField("email", "invalid format")
	}
	if err := checkPassword("password", password); err != nil {
		return SignUpResult{}, err
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		if domain.Is(err, "email_already_exists") {
			s.audit(action, map[string]string{"email": email, "result": "error", "error_code": "email_already_exists"})
		}
		return SignUpResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return SignUpResult{}, hashFailure(err)
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         string(domain.RoleUser),
		CreatedAt:    s.now().UTC(),
	}

	sctx, cancel := s.storeCtx(ctx)
	created, err := s.users.Create(sctx, u)
	cancel()
	if err != nil {
		// unique index catches the race between lookup and insert
		return SignUpResult{}, err
	}

	s.audit(action, map[string]string{
		"user_id": created.ID,
		"email":   created.Email,
		"result":  "success",
	})

	signed, err := s.SignIn(ctx, email, password)
	if err != nil {
		return SignUpResult{User: created.Public()}, err
	}

	return SignUpResult{User: created.Public(), SignIn: signed}, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	_, err := s.users.GetByEmail(sctx, email)
	switch {
	case err == nil:
		return domain.ErrEmailAlreadyExists()
	case domain.Is(err, "user_not_found"):
		return nil
	default:
		return err
	}
}
