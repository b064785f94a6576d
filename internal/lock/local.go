package lock

import (
	"context"
	"fmt"
	"sync"
)

// Local is an in-process Locker. Waiters block until the holder finishes or
// their context is done.
type Local struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

var _ Locker = (*Local)(nil)

// NewLocal returns a Local locker with no keys held.
func NewLocal() *Local {
	return &Local{keys: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	return ch
}

// WithLock runs fn while holding key.
func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ch := l.slot(key)

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLocked, key, ctx.Err())
	}
	defer func() { <-ch }()

	return fn(ctx)
}
