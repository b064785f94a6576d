package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/roomsync/internal/events"
	"github.com/mmynk/roomsync/internal/lock"
	"github.com/mmynk/roomsync/internal/metrics"
)

// Option configures the collaborators of a service.
type Option func(*options)

type options struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	locker    lock.Locker
	now       func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		publisher: events.Nop{},
		locker:    lock.NewLocal(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPublisher sends ledger events to p after each committed change.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics records operation outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocker serializes recurrence passes through l.
func WithLocker(l lock.Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// publish sends an event and logs failures. The change it describes has
// already committed, so a failed publish never fails the operation.
func (o options) publish(ctx context.Context, eventType, groupID, actorID string, payload any) {
	event, err := events.New(eventType, groupID, actorID, payload)
	if err == nil {
		err = o.publisher.Publish(ctx, event)
	}
	if err != nil {
		slog.Warn("Failed to publish ledger event", "type", eventType, "group_id", groupID, "error", err)
	}
}
