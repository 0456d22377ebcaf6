package memory

import (
	"context"
	"sync"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// TokenStore keeps verification tokens keyed by token value.
type TokenStore struct {
	mu   sync.Mutex
	data map[string]domain.VerificationToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{data: make(map[string]domain.VerificationToken)}
}

func (s *TokenStore) Insert(ctx context.Context, t domain.VerificationToken) error {
	if t.Token == "" {
		return domain.ErrMissingField("token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[t.Token] = t
	return nil
}

func (s *TokenStore) Find(ctx context.Context, token string) (domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[token]
	if !ok {
		return domain.VerificationToken{}, domain.ErrInvalidOrExpiredToken()
	}
	return t, nil
}

func (s *TokenStore) Consume(ctx context.Context, token string) (domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[token]
	if !ok {
		return domain.VerificationToken{}, domain.ErrInvalidOrExpiredToken()
	}
	delete(s.data, token)
	return t, nil
}

func (s *TokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[token]; !ok {
		return domain.ErrInvalidOrExpiredToken()
	}
	delete(s.data, token)
	return nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, t := range s.data {
		if t.ExpiredAt(now) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}
