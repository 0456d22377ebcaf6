package dto

import (
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// UserView is the public user payload. It never carries the password hash.
type UserView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	Image         *string    `json:"image,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewUserView(u domain.PublicUser) UserView {
	return UserView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerifiedAt,
		Image:         u.Image,
		CreatedAt:     u.CreatedAt,
	}
}

func NewUserViews(us []domain.PublicUser) []UserView {
	out := make([]UserView, 0, len(us))
	for _, u := range us {
		out = append(out, NewUserView(u))
	}
	return out
}

// SessionView echoes the session credential for bearer clients; browsers
// use the HttpOnly cookie set on the same response.
type SessionView struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"` // "Bearer"
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthData is returned by register and signin.
type AuthData struct {
	User     UserView    `json:"user"`
	Session  SessionView `json:"session"`
	Redirect string      `json:"redirect"`
}

// MeData is returned by /me.
type MeData struct {
	User UserView `json:"user"`
}

type MessageData struct {
	Message string `json:"message"`
}

type TokenValidityData struct {
	Valid bool `json:"valid"`
}

type UsersData struct {
	Users []UserView `json:"users"`
}

type UserData struct {
	User UserView `json:"user"`
}
