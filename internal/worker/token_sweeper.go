package worker

import (
	"context"
	"time"

	"github.com/miharyjoe/ameua-sub001/internal/logger"
)

// ExpiredTokenDeleter is satisfied by every auth.TokenStore.
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SweepMetrics interface {
	TokensSwept(n int64)
}

type noopSweepMetrics struct{}

func (noopSweepMetrics) TokensSwept(int64) {}

// TokenSweeper periodically removes expired password reset tokens that were
// never redeemed.
type TokenSweeper struct {
	store    ExpiredTokenDeleter
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	metrics  SweepMetrics

	// onSweep is called after every pass; used by tests.
	onSweep func(removed int64, err error)
}

func NewTokenSweeper(store ExpiredTokenDeleter, interval, timeout time.Duration) *TokenSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TokenSweeper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		metrics:  noopSweepMetrics{},
		onSweep:  func(int64, error) {},
	}
}

func (s *TokenSweeper) WithMetrics(m SweepMetrics) *TokenSweeper {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *TokenSweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *TokenSweeper) SweepOnce(ctx context.Context) int64 {
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.store.DeleteExpired(sctx, s.now())
	switch {
	case err != nil:
		logger.Logger.Warn().Err(err).Msg("expired token sweep failed")
	case n > 0:
		logger.Logger.Info().Int64("removed", n).Msg("expired reset tokens removed")
		s.metrics.TokensSwept(n)
	}
	s.onSweep(n, err)
	return n
}
