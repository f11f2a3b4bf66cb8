// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/adapter"
	"github.com/prospecta/leadengine/internal/api"
	"github.com/prospecta/leadengine/internal/clock/system"
	"github.com/prospecta/leadengine/internal/config"
	"github.com/prospecta/leadengine/internal/failover"
	"github.com/prospecta/leadengine/internal/id/uuid"
	"github.com/prospecta/leadengine/internal/logging"
	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/quota"
	"github.com/prospecta/leadengine/internal/registry"
	"github.com/prospecta/leadengine/internal/scrape"
	"github.com/prospecta/leadengine/internal/secrets"
	"github.com/prospecta/leadengine/internal/selector"
	"github.com/prospecta/leadengine/internal/storage/memory"
	"github.com/prospecta/leadengine/internal/storage/postgres"
)

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and passed to the components that need it.
type App struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
	engine *scrape.Engine
	server *api.Server
	cfg    config.Config
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Engine returns the scraping engine, so callers can start its sweeper.
func (a *App) Engine() *scrape.Engine { return a.engine }

// Handler returns the HTTP handler for the API server.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// New creates and initializes an App from the given configuration. It is the
// central point for service initialization and fails fast if any critical
// service cannot be built. An empty db.dsn selects the in-memory stores.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("initializing application services")

	clk := system.New()
	ids := uuid.New()

	var (
		pool      *pgxpool.Pool
		providers provider.Store
		mappings  provider.MappingStore
		ledger    provider.UsageLedger
		jobs      scrape.JobStore
		activity  scrape.ActivityLog
	)
	if cfg.DB.DSN != "" {
		logger.Info("connecting to PostgreSQL")
		pool, err = postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		if providers, err = postgres.NewProviderStore(pool); err != nil {
			return nil, err
		}
		if mappings, err = postgres.NewMappingStore(pool); err != nil {
			return nil, err
		}
		if ledger, err = postgres.NewUsageStore(pool); err != nil {
			return nil, err
		}
		if jobs, err = postgres.NewJobStore(pool); err != nil {
			return nil, err
		}
		if activity, err = postgres.NewActivityLog(pool); err != nil {
			return nil, err
		}
	} else {
		logger.Info("using in-memory stores")
		providers = memory.NewProviderStore()
		mappings = memory.NewMappingStore()
		ledger = memory.NewUsageStore()
		jobs = memory.NewJobStore()
		activity = memory.NewActivityLog()
	}

	var cipher secrets.Cipher
	if cfg.Secrets.Passphrase != "" {
		cipher, err = secrets.NewAESCipher(cfg.Secrets.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("initialize secrets cipher: %w", err)
		}
	} else {
		logger.Warn("secrets.passphrase not set, provider credentials stored in plaintext")
		cipher = secrets.Noop{}
	}

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		Timeout:     cfg.FetchTimeout(),
		MaxAttempts: cfg.Scrape.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
	}, logger)

	engine := scrape.NewEngine(fetcher, jobs, activity, ids, clk, scrape.EngineConfig{
		ChunkSize:    cfg.Scrape.ChunkSize,
		ChunkDelay:   cfg.ChunkDelay(),
		DomainLimit:  cfg.Scrape.DomainRequestsPerWindow,
		DomainWindow: cfg.DomainWindow(),
	}, logger)

	guard := quota.New(ledger, clk, logger)
	sel := selector.New(providers, mappings, guard, logger)
	factory := adapter.NewFactory(http.DefaultClient, cipher, engine, logger)
	exec := failover.New(sel, guard, ledger, factory, clk, logger)
	reg := registry.New(providers, mappings, cipher, ids, clk, logger)
	server := api.NewServer(reg, sel, guard, exec, engine, jobs, logger)

	logger.Info("application services initialized")

	return &App{
		logger: logger,
		pool:   pool,
		engine: engine,
		server: server,
		cfg:    cfg,
	}, nil
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.pool != nil {
		a.pool.Close()
	}
	// Flushing the logger buffer is best effort. Stderr sync failures on
	// some platforms are expected and ignored.
	_ = a.logger.Sync()
}
