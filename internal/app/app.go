// Package app wires configuration, storage and services together for the
// server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/lock"
	"github.com/amissa/backend/internal/queue"
	"github.com/amissa/backend/internal/repository"
	"github.com/amissa/backend/internal/service"
	"github.com/amissa/backend/pkg/fedapay"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config  config.Config
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil when not configured
	Gateway fedapay.Client
	Broker  *queue.AMQPPublisher // nil when not configured

	Generator  service.OccurrenceGenerator
	Masses     service.MassService
	Booking    service.BookingService
	Reconciler service.PaymentReconciler
	Payouts    service.PayoutProcessor
}

// New connects to the database and optional infrastructure and builds every
// service. Redis and RabbitMQ are optional: without Redis generation locks are
// held in memory, without RabbitMQ no events are published.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &App{Config: cfg, Pool: pool}

	var locker lock.Locker = lock.NewMemoryLocker()
	if a.Redis = config.NewRedisClient(cfg); a.Redis != nil {
		locker = lock.NewRedisLocker(a.Redis)
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	} else if cfg.RedisEnabled() {
		slog.Warn("redis unreachable, using in-process locks", "addr", cfg.RedisAddr)
	}

	var publisher queue.Publisher
	if cfg.RabbitMQURL != "" {
		p, err := queue.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			slog.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			a.Broker = p
			publisher = p
		}
	}

	webhookSecret := cfg.FedaPayWebhookSecret
	if webhookSecret == "" {
		webhookSecret = cfg.FedaPaySecretKey
	}
	gateway := fedapay.NewClient(cfg.FedaPaySecretKey, webhookSecret, cfg.FedaPayEnvironment)
	a.Gateway = gateway
	if cfg.FedaPaySecretKey == "" {
		slog.Warn("FEDAPAY_SECRET_KEY not set, payments only work for parishes with a diocese key")
	}

	parishes := repository.NewPgParishRepository(pool)
	masses := repository.NewPgMassRepository(pool)
	occurrences := repository.NewPgOccurrenceRepository(pool)
	intentions := repository.NewPgIntentionRepository(pool)

	a.Generator = service.NewOccurrenceGenerator(masses, occurrences, service.GeneratorConfig{
		Location: cfg.Location,
		Locker:   locker,
	})
	a.Masses = service.NewMassService(parishes, masses, occurrences, a.Generator, cfg.Location)
	a.Booking = service.NewBookingService(parishes, occurrences, intentions, gateway, service.BookingConfig{
		Location: cfg.Location,
	})
	a.Reconciler = service.NewPaymentReconciler(intentions, service.ReconcilerConfig{
		RefundAsRefunded: cfg.RefundAsRefunded,
		Publisher:        publisher,
	})
	a.Payouts = service.NewPayoutProcessor(parishes, intentions, gateway, publisher)
	return a, nil
}

// Close releases every connection held by the app.
func (a *App) Close() {
	if a.Broker != nil {
		_ = a.Broker.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}
