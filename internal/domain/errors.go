package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation  ErrKind = "validation"   // 400
	KindAuth        ErrKind = "auth"         // 401
	KindForbidden   ErrKind = "forbidden"    // 403
	KindNotFound    ErrKind = "not_found"    // 404
	KindConflict    ErrKind = "conflict"     // 409
	KindRateLimited ErrKind = "rate_limited" // 429
	KindInternal    ErrKind = "internal"     // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the stable code of a domain error, or "" for anything else.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(
		New(KindValidation, "invalid_role", "invalid role"),
		map[string]string{"role": role},
	)
}

// ----------------------
// Reset token errors (400)
// ----------------------

// Absent, already redeemed, or pointing at a user that no longer exists.
func ErrInvalidOrExpiredToken() *Error {
	return New(KindValidation, "invalid_or_expired_token", "invalid or expired token")
}

// The row is deleted by the store when this is returned.
func ErrTokenExpired() *Error {
	return New(KindValidation, "token_expired", "token has expired")
}

// ----------------------
// Admin self-protection (400)
// ----------------------

func ErrSelfDemotionForbidden() *Error {
	return New(KindValidation, "self_demotion_forbidden", "admins cannot change their own role")
}

func ErrSelfDeletionForbidden() *Error {
	return New(KindValidation, "self_deletion_forbidden", "admins cannot delete their own account")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for sign-in failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
}

func ErrUnauthorized() *Error {
	return New(KindAuth, "unauthorized", "authentication required")
}

func ErrSessionInvalid() *Error {
	return New(KindAuth, "session_invalid", "invalid session")
}

func ErrSessionExpired() *Error {
	return New(KindAuth, "session_expired", "session is expired")
}

func ErrInsufficientRole(required string) *Error {
	return WithMeta(New(KindAuth, "insufficient_role", "insufficient role"), map[string]string{
		"required": required,
	})
}

// ----------------------
// Forbidden (403)
// ----------------------

// Cookie-authenticated write from an origin that is not allowed.
func ErrOriginRejected() *Error {
	return New(KindForbidden, "origin_rejected", "cross-origin request not allowed")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

// ----------------------
// Conflict (409)
// ----------------------

// Deliberately does not say which field collided.
func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "an account with these details already exists")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Internal (500)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInternal, "db_unavailable", "database unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrSessionSignFailed(cause error) *Error {
	return Wrap(KindInternal, "session_sign_failed", "session signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrDeliveryFailed(cause error) *Error {
	return Wrap(KindInternal, "delivery_failed", "message delivery failed", cause)
}
