// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/metrics"
)

// CounterStore is the shared per-second counter. Incr returns the
// post-increment value for the given unix second; the key must expire (or
// go unread) after the second passes.
type CounterStore interface {
	Incr(ctx context.Context, epochSecond int64) (int64, error)
}

// Limiter is the system-wide admission gate for call-origination attempts.
// Campaign identity is irrelevant here: carrier capacity is shared.
type Limiter struct {
	Store CounterStore

	// MaxCPS is consulted on every Admit so operators can lower the
	// ceiling live. No caching.
	MaxCPS func() int

	Logger *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewLimiter(store CounterStore, maxCPS func() int, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{Store: store, MaxCPS: maxCPS, Logger: logger, now: time.Now}
}

// Admit returns nil when the attempt may proceed and RateLimitedError when
// this second's ceiling is reached. Denials are retryable with backoff;
// they are never a processing failure.
//
// If the counter store is unreachable the limiter fails open: availability
// over strict enforcement. The condition is logged distinctly for
// alerting.
func (l *Limiter) Admit(ctx context.Context) error {
	maxCPS := l.MaxCPS()
	if maxCPS <= 0 {
		return nil
	}

	second := l.now().Unix()
	count, err := l.Store.Incr(ctx, second)
	if err != nil {
		metrics.RateStoreFailures.Inc()
		l.Logger.Warn("rate counter store unreachable, admitting fail-open",
			zap.Int64("epoch_second", second),
			zap.Error(err))
		return nil
	}

	if count > int64(maxCPS) {
		metrics.DialsRateLimited.Inc()
		return appErrors.NewRateLimited(maxCPS)
	}

	metrics.DialsAdmitted.Inc()
	return nil
}
