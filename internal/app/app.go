// Package app builds the collaborators shared by the server and the worker
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/mmynk/roomsync/internal/config"
	"github.com/mmynk/roomsync/internal/events"
	"github.com/mmynk/roomsync/internal/lock"
	"github.com/mmynk/roomsync/internal/metrics"
	"github.com/mmynk/roomsync/internal/service"
	"github.com/mmynk/roomsync/internal/storage/sqlite"
)

const redisPingTimeout = 5 * time.Second

// App holds the store and the optional infrastructure around it.
type App struct {
	Store     *sqlite.SQLiteStore
	Locker    lock.Locker
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	redis goredislib.UniversalClient
}

// New opens the database and connects to Redis and RabbitMQ when configured.
// An unreachable broker only disables events. An unreachable Redis is an error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Store:     store,
		Locker:    lock.NewLocal(),
		Publisher: events.Nop{},
		Metrics:   metrics.New(reg),
	}

	if cfg.RedisAddr != "" {
		client := goredislib.NewClient(&goredislib.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			store.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		opts := lock.DefaultRedisOptions()
		opts.Expiry = cfg.RecurrenceLockTTL
		a.redis = client
		a.Locker = lock.NewRedis(client, opts)
		slog.Info("Recurrence lock shared through Redis", "addr", cfg.RedisAddr)
	} else {
		slog.Info("Recurrence lock is in-process; run a single recurrence worker")
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("Failed to initialize AMQP publisher, continuing without events", "error", err)
		} else {
			a.Publisher = publisher
			slog.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		slog.Info("AMQP disabled, ledger events will not be published")
	}

	return a, nil
}

// ServiceOptions passes the app's collaborators to a service constructor.
func (a *App) ServiceOptions() []service.Option {
	return []service.Option{
		service.WithPublisher(a.Publisher),
		service.WithMetrics(a.Metrics),
		service.WithLocker(a.Locker),
	}
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	errs = append(errs, a.Publisher.Close())
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
