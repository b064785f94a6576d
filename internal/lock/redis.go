package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// RedisOptions tune how long a lock lives and how hard WithLock tries to get it.
type RedisOptions struct {
	// Expiry bounds how long a crashed holder can block others.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before ErrLocked.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultRedisOptions wait up to roughly ten seconds for the lock.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     2 * time.Minute,
		Tries:      20,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Redis is a Locker backed by redsync, shared by every process that talks to
// the same Redis.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a Redis locker over an existing client.
func NewRedis(client goredislib.UniversalClient, opts RedisOptions) *Redis {
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

// WithLock acquires key, runs fn, and releases key.
//
// If fn outlives Expiry the lock silently lapses; the release then fails and
// is logged. Choose Expiry well above the slowest expected pass.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := r.rs.NewMutex(key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return fmt.Errorf("%w: %s", ErrLocked, key)
		}
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	slog.Debug("Lock acquired", "key", key)

	defer func() {
		// Release even if ctx was cancelled while fn ran.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			slog.Error("Failed to release lock", "key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
