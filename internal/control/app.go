// Package control wires configuration into the provider registry, routing,
// recovery, persistence and the health server.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/taskrelay/internal/core/config"
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/advisor"
	"github.com/vietddude/taskrelay/internal/infra/health"
	"github.com/vietddude/taskrelay/internal/infra/provider"
	redisclient "github.com/vietddude/taskrelay/internal/infra/redis"
	"github.com/vietddude/taskrelay/internal/infra/routing"
	"github.com/vietddude/taskrelay/internal/infra/storage"
	"github.com/vietddude/taskrelay/internal/infra/storage/memory"
	"github.com/vietddude/taskrelay/internal/infra/storage/postgres"
	"github.com/vietddude/taskrelay/internal/recovery"
)

// App is the taskrelay application: providers, routing and recovery plus
// the stores and servers around them.
type App struct {
	cfg          *config.AppConfig
	registry     *provider.Registry
	orchestrator *routing.Orchestrator
	advisor      *advisor.Selector
	recovery     *recovery.Manager
	statsRepo    storage.StatsRepository
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	extraProviders []extraProvider
	backend        advisor.Backend
}

type extraProvider struct {
	p       provider.Provider
	aliases []string
}

// Option customizes App construction.
type Option func(*App)

// WithProvider registers an additional provider after the configured ones.
func WithProvider(p provider.Provider, aliases ...string) Option {
	return func(a *App) {
		a.extraProviders = append(a.extraProviders, extraProvider{p: p, aliases: aliases})
	}
}

// WithAdvisorBackend replaces the Ollama backend.
func WithAdvisorBackend(b advisor.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithStatsRepository replaces the configured stats store.
func WithStatsRepository(repo storage.StatsRepository) Option {
	return func(a *App) { a.statsRepo = repo }
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default().With("component", "app")}
	for _, opt := range opts {
		opt(a)
	}

	// 1. Storage
	if a.statsRepo == nil {
		if err := a.initStorage(ctx); err != nil {
			return nil, err
		}
	}

	// 2. Providers
	a.registry = provider.NewRegistry()
	for _, pc := range cfg.Providers {
		a.registry.Register(provider.NewCommandProvider(provider.CommandConfig{
			Name:       pc.Name,
			Command:    pc.Command,
			Args:       pc.Args,
			HealthArgs: pc.HealthArgs,
			Timeout:    pc.Timeout,
			Env:        pc.Env,
		}), pc.Aliases...)
	}
	for _, ep := range a.extraProviders {
		a.registry.Register(ep.p, ep.aliases...)
	}
	if len(cfg.Order) > 0 {
		a.registry.SetOrder(cfg.Order)
	}

	// 3. Routing
	a.orchestrator = routing.NewOrchestrator(a.registry, routing.BreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
	})

	// 4. Advisor
	if cfg.Advisor.Enabled {
		if err := a.initAdvisor(); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 5. Recovery
	classifier := recovery.NewClassifier()
	for _, r := range cfg.Recovery.Rules {
		if err := classifier.AddRule(r); err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid recovery rule: %w", err)
		}
	}
	a.recovery = recovery.NewManager(classifier)

	// 6. Health
	a.healthMon = health.NewMonitor(a.orchestrator, health.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
		CacheTTL:         10 * time.Second,
	})
	a.healthServer = health.NewServer(a.healthMon, a.statsPayload, cfg.Server.Port)

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		a.statsRepo = memory.NewStatsRepo()
		a.log.Debug("Using memory stats storage")
		return nil
	}

	db, err := postgres.NewDB(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.statsRepo = postgres.NewStatsRepo(db)
	a.log.Debug("Using PostgreSQL stats storage")
	return nil
}

func (a *App) initAdvisor() error {
	backend := a.backend
	if backend == nil {
		ollama, err := advisor.NewOllamaBackend(advisor.OllamaConfig{
			URL:   a.cfg.Advisor.URL,
			Model: a.cfg.Advisor.Model,
		})
		if err != nil {
			return err
		}
		backend = ollama
	}

	var cache advisor.Cache = advisor.NewMemoryCache(a.cfg.Advisor.CacheTTL)
	if a.cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, using in-memory advice cache", "error", err)
		} else {
			a.redisClient = client
			cache = redisclient.NewAdviceCache(client, a.cfg.Advisor.CacheTTL)
		}
	}

	a.advisor = advisor.NewSelector(
		advisor.Config{
			Enabled: true,
			URL:     a.cfg.Advisor.URL,
			Timeout: a.cfg.Advisor.Timeout,
		},
		backend,
		cache,
		a.registry,
		a.orchestrator.Selector(),
	)
	a.orchestrator.SetAdvisor(a.advisor)
	return nil
}

// Registry returns the provider registry.
func (a *App) Registry() *provider.Registry { return a.registry }

// Orchestrator returns the routing orchestrator.
func (a *App) Orchestrator() *routing.Orchestrator { return a.orchestrator }

// Recovery returns the recovery manager.
func (a *App) Recovery() *recovery.Manager { return a.recovery }

// Advisor returns the advice selector, or nil when advice is disabled.
func (a *App) Advisor() *advisor.Selector { return a.advisor }

// HealthMonitor returns the provider health monitor.
func (a *App) HealthMonitor() *health.Monitor { return a.healthMon }

// LoadStats restores persisted provider stats into the registry.
func (a *App) LoadStats(ctx context.Context) error {
	stats, err := a.statsRepo.Load(ctx)
	if err != nil {
		return err
	}
	a.registry.Restore(stats)
	a.log.Debug("Restored provider stats", "providers", len(stats))
	return nil
}

// SaveStats persists the registry's current provider stats.
func (a *App) SaveStats(ctx context.Context) error {
	return a.statsRepo.Save(ctx, a.registry.Snapshot())
}

// ResetStats resets stats for name ("" or "all" for every provider) and
// persists the result.
func (a *App) ResetStats(ctx context.Context, name string) error {
	if err := a.orchestrator.ResetProviderStats(name); err != nil {
		return err
	}
	return a.SaveStats(ctx)
}

// StatsReport is served on /stats.
type StatsReport struct {
	Providers map[string]domain.ProviderStats `json:"providers"`
	Recovery  recovery.Statistics             `json:"recovery"`
}

func (a *App) statsPayload() any {
	return StatsReport{
		Providers: a.orchestrator.GetProviderStats(),
		Recovery:  a.recovery.Statistics(),
	}
}

// Serve starts the health server and background collectors. It returns
// immediately; listen errors are logged.
func (a *App) Serve(ctx context.Context) {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	a.log.Info("Health server listening", "addr", a.healthServer.Addr())

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
}

// Stop stops the health server.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping taskrelay...")
	return a.healthServer.Stop(ctx)
}

// Close releases database and Redis connections.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
