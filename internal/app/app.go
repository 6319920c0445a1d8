// Package app wires configuration into the collaborators both entry points
// share: the service client, the session store, audit publishing and QR
// rendering.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin"
	"ms-checkin/internal/checkinapi"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/config"
	"ms-checkin/internal/history"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/qr"
	"ms-checkin/internal/secret"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger
	Client *checkinapi.Client
	Store  auth.Store
	Box    *secret.Box
	Audit  checkin.AuditPublisher
	QR     *qr.Generator
	Clock  clock.Clock

	closers []func() error
}

// New connects everything cfg asks for. Kafka problems degrade to no audit
// publishing; a bad encryption key or unreachable Redis is fatal.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: log,
		Client: checkinapi.NewClient(cfg.API.BaseURL, cfg.Auth.Scheme, &http.Client{Timeout: cfg.API.Timeout}, log),
		Clock:  clock.NewSystem(),
	}

	if cfg.Auth.EncryptionKey != "" {
		box, err := secret.NewBox(cfg.Auth.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
		}
		a.Box = box
	}
	a.QR = qr.NewGenerator(a.Box)

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.initAudit(ctx)

	log.Info("APP", fmt.Sprintf("Check-in service at %s", cfg.API.BaseURL))
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Redis.Addr == "" {
		a.Store = auth.NewMemoryStore(cfg.Auth.Token)
		a.Logger.Info("AUTH", "Using in-memory session store")
		return nil
	}

	client, err := auth.InitializeSessionRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to session redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	if a.Box == nil {
		a.Logger.LogSecurity("SESSION", "ENCRYPTION_KEY not set, session token stored in plain text")
	}
	store := auth.NewRedisStore(client, a.Box)
	if cfg.Auth.Token != "" {
		if err := store.Save(ctx, cfg.Auth.Token); err != nil {
			return fmt.Errorf("failed to store CHECKIN_TOKEN: %w", err)
		}
	}
	a.Store = store
	return nil
}

func (a *App) initAudit(ctx context.Context) {
	cfg := a.Config.Kafka
	if !cfg.Enabled {
		return
	}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, []string{cfg.AuditTopic}, a.Logger); err != nil {
		a.Logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.AuditTopic, a.Logger)
	audit := checkin.NewBackgroundAudit(producer, producer.Timeout, a.Logger)
	a.Audit = audit
	// closers run in reverse: pending publishes drain before the writer closes
	a.closers = append(a.closers, producer.Close, func() error {
		audit.Wait()
		return nil
	})
	a.Logger.Info("KAFKA", fmt.Sprintf("Publishing audit events to %s", cfg.AuditTopic))
}

// Deps returns screen dependencies without navigation or alerts; callers add
// their own.
func (a *App) Deps() checkin.Deps {
	return checkin.Deps{
		API:         a.Client,
		Credentials: a.Store,
		Audit:       a.Audit,
		Logger:      a.Logger,
		Clock:       a.Clock,
	}
}

func (a *App) History() *history.List {
	return history.NewList(a.Client, a.Store, a.Logger)
}

// AuditConsumer follows the audit topic. It fails when Kafka is disabled.
func (a *App) AuditConsumer(groupID string) (*kafka.Consumer, error) {
	if !a.Config.Kafka.Enabled {
		return nil, errors.New("kafka is disabled, set KAFKA_ENABLED=true")
	}
	return kafka.NewConsumer(a.Config.Kafka.Brokers, a.Config.Kafka.AuditTopic, groupID, a.Logger), nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.Logger.Warn("APP", fmt.Sprintf("Close failed: %v", err))
		}
	}
	a.closers = nil
}
