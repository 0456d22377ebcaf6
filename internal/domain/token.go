package domain

import "time"

// VerificationToken is a single-use password reset token.
// Identifier is the email the token was issued for.
type VerificationToken struct {
	Identifier string
	Token      string
	Expires    time.Time
}

func (t VerificationToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.Expires)
}

// Session is the authenticated principal attached to a request.
// Role is a snapshot taken at sign-in and is not refreshed until the
// user signs in again.
type Session struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}
