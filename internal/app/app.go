package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/config"
	"github.com/utafrali/EcommerceGo/storefront/internal/orders"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/file"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/memory"
	redisstore "github.com/utafrali/EcommerceGo/storefront/internal/repository/redis"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/database"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// UnavailableMessage is shown while the circuit breaker rejects API calls.
const UnavailableMessage = "The store is temporarily unavailable. Please try again later."

// App wires together all dependencies of the storefront client.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	API      *api.Client
	Breaker  *httpclient.CircuitBreakerClient
	Session  *session.Manager
	Checkout *checkout.Orchestrator
	Orders   *orders.Service

	store          repository.SessionStore
	redis          *goredis.Client
	tracerShutdown func(context.Context) error
}

// NewApp creates the application and restores the persisted session.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(initCtx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}

	store, err := a.openStore(initCtx)
	if err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	a.store = store

	// Build the dependency graph.
	hc := httpclient.New(cfg.HTTPClient())
	a.Breaker = httpclient.NewCircuitBreakerClient(hc, cfg.CircuitBreaker(), logger).
		WithFallback(httpclient.RespondUnavailable(UnavailableMessage))
	a.API = api.New(a.Breaker, cfg.APIBaseURL, logger)
	a.Session = session.NewManager(a.API, store, logger)
	a.Checkout = checkout.NewOrchestrator(a.Session, a.API, logger)
	a.Orders = orders.NewService(a.Session, a.API, logger)

	a.Session.Restore(initCtx)
	logger.Debug("storefront initialized",
		slog.String("api", a.API.BaseURL()),
		slog.String("store", cfg.Store),
		slog.Bool("authenticated", a.Session.IsAuthenticated()),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.SessionStore, error) {
	switch a.cfg.Store {
	case config.StoreMemory:
		return memory.NewSessionStore(), nil
	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPass,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.logger.Debug("connected to redis", slog.String("addr", a.cfg.RedisAddr))
		a.redis = client
		return redisstore.NewSessionStore(client, a.cfg.StoreNamespace, 0), nil
	default:
		return file.NewSessionStore(a.cfg.StorePath), nil
	}
}

// Health builds the dependency checks of the client.
func (a *App) Health() *health.Registry {
	r := health.NewRegistry(5 * time.Second)
	r.RegisterCritical("session_store", func(ctx context.Context) error {
		_, err := a.store.Load(ctx)
		return err
	})
	if a.redis != nil {
		r.RegisterCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	r.RegisterNonCritical("commerce_api", func(context.Context) error {
		if a.Breaker.State() == gobreaker.StateOpen {
			return httpclient.ErrCircuitOpen
		}
		return nil
	})
	r.RegisterNonCritical("session", func(context.Context) error {
		exp, ok := a.Session.TokenExpiry()
		if ok && time.Now().After(exp) {
			return fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
		}
		return nil
	})
	return r
}

// Store returns the session store in use.
func (a *App) Store() repository.SessionStore { return a.store }

// Shutdown stops all components:
// 1. Order history (cancel in-flight loads)
// 2. Tracer (flush pending spans)
// 3. Redis client
func (a *App) Shutdown() error {
	var errs []error

	if a.Orders != nil {
		a.Orders.Close()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
