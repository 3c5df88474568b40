package ratelimit

import (
	"context"
	"time"

	"github.com/samber/do"
	"golang.org/x/sync/semaphore"
)

// Limiter spaces out model calls process-wide.
type Limiter struct {
	sem  *semaphore.Weighted
	last time.Time
}

func New(_ *do.Injector) (*Limiter, error) {
	return NewLimiter(), nil
}

func NewLimiter() *Limiter {
	return &Limiter{
		sem: semaphore.NewWeighted(1),
	}
}

// WaitForSlot blocks until minInterval has passed since the previous slot
// was granted, then records the grant time. The lock is held while sleeping,
// so concurrent callers are serialized. On cancellation nothing is recorded.
func (l *Limiter) WaitForSlot(ctx context.Context, minInterval time.Duration) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	if !l.last.IsZero() {
		if wait := minInterval - time.Since(l.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()

			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	l.last = time.Now()

	return nil
}
