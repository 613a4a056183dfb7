package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const janitorLockName = "janitor:expire-stale"

// StaleExpirer cancels open ride requests older than a cutoff.
type StaleExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Locker is a distributed lock shared by every replica.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// RunJanitor expires stale ride requests every interval until ctx is done.
// With a non-nil locker only the replica holding the lock sweeps on a tick.
func RunJanitor(ctx context.Context, expirer StaleExpirer, locker Locker, ttl, interval time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, expirer, locker, ttl, interval, logger)
		}
	}
}

func sweep(ctx context.Context, expirer StaleExpirer, locker Locker, ttl, interval time.Duration, logger logrus.FieldLogger) {
	if locker != nil {
		ok, err := locker.AcquireLock(ctx, janitorLockName, interval)
		if err != nil {
			logger.WithError(err).Warn("janitor: lock unavailable, skipping sweep")
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := locker.ReleaseLock(context.WithoutCancel(ctx), janitorLockName); err != nil {
				logger.WithError(err).Warn("janitor: failed to release lock")
			}
		}()
	}

	n, err := expirer.ExpireStale(ctx, ttl)
	if err != nil {
		logger.WithError(err).Warn("janitor: expire stale rides failed")
		return
	}
	if n > 0 {
		logger.WithField("expired", n).Info("janitor: expired stale ride requests")
	}
}
