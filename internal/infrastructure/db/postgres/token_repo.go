package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// TokenRepo stores password reset tokens in verification_tokens.
type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Insert(ctx context.Context, t domain.VerificationToken) error {
	if strings.TrimSpace(t.Token) == "" {
		return domain.ErrMissingField("token")
	}
	if strings.TrimSpace(t.Identifier) == "" {
		return domain.ErrMissingField("identifier")
	}

	const q = `
INSERT INTO verification_tokens (identifier, token, expires)
VALUES ($1, $2, $3);
`
	if _, err := r.db.ExecContext(ctx, q, t.Identifier, t.Token, t.Expires); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *TokenRepo) Find(ctx context.Context, token string) (domain.VerificationToken, error) {
	const q = `
SELECT identifier, token, expires
FROM verification_tokens
WHERE token = $1;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, token))
}

// Consume deletes and returns the row in one statement, so concurrent
// callers cannot both receive it.
func (r *TokenRepo) Consume(ctx context.Context, token string) (domain.VerificationToken, error) {
	const q = `
DELETE FROM verification_tokens
WHERE token = $1
RETURNING identifier, token, expires;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, token))
}

func (r *TokenRepo) Delete(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = $1;`, token)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrInvalidOrExpiredToken()
	}
	return nil
}

func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires <= $1;`, now)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *TokenRepo) scanOne(row *sql.Row) (domain.VerificationToken, error) {
	var t domain.VerificationToken
	if err := row.Scan(&t.Identifier, &t.Token, &t.Expires); err != nil {
		if isNoRows(err) {
			return domain.VerificationToken{}, domain.ErrInvalidOrExpiredToken()
		}
		return domain.VerificationToken{}, domain.ErrDBUnavailable(err)
	}
	return t, nil
}
