package postgres

import (
	"database/sql"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, email_verified, image, created_at`

type userRow struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  sql.NullString
	Role          string
	EmailVerified sql.NullTime
	Image         sql.NullString
	CreatedAt     time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (userRow, error) {
	var ur userRow
	err := s.Scan(
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Role,
		&ur.EmailVerified,
		&ur.Image,
		&ur.CreatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	u := domain.User{
		ID:           ur.ID,
		Name:         ur.Name,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash.String,
		Role:         ur.Role,
		CreatedAt:    ur.CreatedAt,
	}
	if ur.EmailVerified.Valid {
		t := ur.EmailVerified.Time
		u.EmailVerifiedAt = &t
	}
	if ur.Image.Valid {
		img := ur.Image.String
		u.Image = &img
	}
	return u
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
