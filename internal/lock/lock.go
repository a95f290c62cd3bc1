package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/cache"
)

// lockKeyPrefix namespaces lock keys away from seat holds and cached
// aggregates sharing the same store.
const lockKeyPrefix = "seat_lock"

// Locker is a try-or-fail mutual exclusion primitive scoped by an
// arbitrary string, built on the cache store's atomic set-if-absent
// semantics. Acquire never blocks waiting for a holder; callers that
// fail to acquire must fail their surrounding operation with a
// retryable "resource busy" error instead of proceeding unprotected.
type Locker struct {
	store  cache.Store
	logger *logrus.Logger
}

// NewLocker creates a Locker on top of the given store
func NewLocker(store cache.Store, logger *logrus.Logger) *Locker {
	return &Locker{store: store, logger: logger}
}

func lockKey(scope string) string {
	return fmt.Sprintf("%s:%s", lockKeyPrefix, scope)
}

// Acquire attempts to take the lock for scope, storing the caller's
// token with the given TTL. Returns true iff this caller now holds the
// lock exclusively until TTL expiry or release.
func (l *Locker) Acquire(ctx context.Context, scope, token string, ttl time.Duration) bool {
	acquired := l.store.SetNX(ctx, lockKey(scope), token, ttl)
	if !acquired {
		l.logger.WithField("scope", scope).Debug("lock busy")
	}
	return acquired
}

// Release frees the lock for scope only if it still holds the caller's
// token. A caller whose TTL lapsed and whose scope was re-acquired by
// another holder releases nothing.
func (l *Locker) Release(ctx context.Context, scope, token string) bool {
	released := l.store.CompareAndDelete(ctx, lockKey(scope), token)
	if !released {
		l.logger.WithField("scope", scope).Debug("lock release was a no-op; token no longer owns the lock")
	}
	return released
}

// Scope builds the canonical lock scope for one unit of seat inventory
func Scope(routeID, journeyDate string) string {
	return fmt.Sprintf("%s:%s", routeID, journeyDate)
}
