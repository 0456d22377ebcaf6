package domain

import "time"

type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Role            string
	EmailVerifiedAt *time.Time
	Image           *string
	CreatedAt       time.Time
}

// PublicUser is the projection of User that may leave the credential subsystem.
type PublicUser struct {
	ID              string
	Name            string
	Email           string
	Role            string
	EmailVerifiedAt *time.Time
	Image           *string
	CreatedAt       time.Time
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		EmailVerifiedAt: u.EmailVerifiedAt,
		Image:           u.Image,
		CreatedAt:       u.CreatedAt,
	}
}
