package dto

import "strings"

// -------- Core auth --------

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return check(r)
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate only checks presence; anything else would let a caller
// distinguish rejected input from wrong credentials.
func (r *SignInRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return check(r)
}

// -------- Password reset --------

// Step A: request reset (always answered with the same message)
type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *PasswordForgotRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return check(r)
}

// Step B: redeem
type PasswordResetRequest struct {
	Token       string `json:"token" validate:"required,hexadecimal,len=64"`
	NewPassword string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if err := check(r); err != nil {
		return badTokenAsInvalid(err, "token")
	}
	return nil
}

// GET /password/reset/validate?token=...
type PasswordResetValidateQuery struct {
	Token string `json:"-" query:"token" validate:"required"`
}

func (q *PasswordResetValidateQuery) Validate() error {
	q.Token = strings.TrimSpace(q.Token)
	return check(q)
}

// -------- Password change (authenticated) --------

type PasswordChangeRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

func (r *PasswordChangeRequest) Validate() error {
	return check(r)
}

// -------- Admin --------

type SetUserRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

func (r *SetUserRoleRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	return check(r)
}

// -------- Contact --------

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (r *ContactRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	return check(r)
}
