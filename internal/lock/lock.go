// Package lock serializes critical sections that must not run concurrently,
// such as a recurrence pass. Use Redis when several processes share a
// database and Local when only one process does.
package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned when the lock could not be acquired because another
// holder kept it for the whole wait.
var ErrLocked = errors.New("lock is held by another worker")

// Locker runs fn while holding the named lock. The lock is released when fn
// returns, even if it panics.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
