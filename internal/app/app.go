// Package app assembles the pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/api"
	"github.com/hossagent/leadscout/internal/clock/system"
	"github.com/hossagent/leadscout/internal/config"
	"github.com/hossagent/leadscout/internal/discovery"
	"github.com/hossagent/leadscout/internal/dispatcher"
	"github.com/hossagent/leadscout/internal/enrich"
	collyfetcher "github.com/hossagent/leadscout/internal/fetcher/colly"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
	"github.com/hossagent/leadscout/internal/search"
	"github.com/hossagent/leadscout/internal/signal"
	"github.com/hossagent/leadscout/internal/store/memory"
	"github.com/hossagent/leadscout/internal/store/postgres"
)

// App holds the wired pipeline components.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Store        lead.Store
	Guard        *guard.Guard
	Orchestrator *enrich.Orchestrator
	Server       *api.Server

	storeCloser func()
}

// New builds the full pipeline. An empty db.dsn selects the in-memory
// store; otherwise the Postgres store is used.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	clk := system.New()

	g := guard.New(guard.Config{
		FailureThreshold: cfg.Guard.FailureThreshold,
		Cooldown:         config.Duration(cfg.Guard.Cooldown),
		RatePerSecond:    cfg.Guard.RatePerSecond,
		Burst:            cfg.Guard.Burst,
		DelayMin:         msDuration(cfg.Discovery.DelayMinMs),
		DelayMax:         msDuration(cfg.Discovery.DelayMaxMs),
	}, clk, logger)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgents: cfg.Discovery.UserAgents,
		Timeout:    config.Duration(cfg.Discovery.FetchTimeout),
	})
	searcher := search.New(fetcher, g, logger)
	blocklist := lead.NewBlocklist(cfg.Discovery.BlockedDomains)
	cacheTTL := config.Duration(cfg.Discovery.CacheTTL)

	domains := discovery.NewDomainEngine(discovery.DomainConfig{
		MaxArticleLinks: cfg.Discovery.MaxArticleLinks,
		CacheTTL:        cacheTTL,
	}, fetcher, searcher, g, blocklist, clk, logger)
	emails := discovery.NewEmailEngine(discovery.EmailConfig{
		MaxPages: cfg.Discovery.MaxContactPages,
		CacheTTL: cacheTTL,
	}, fetcher, g, clk, logger)
	registry := discovery.NewPhoneRegistry(cacheTTL, clk)
	phones := discovery.NewPhoneEngine(discovery.PhoneConfig{
		CacheTTL:       cacheTTL,
		LocalAreaCodes: cfg.Targeting.LocalAreaCodes,
		ReuseThreshold: cfg.Enrich.PhoneReuseThreshold,
	}, fetcher, g, registry, clk, logger)

	var (
		store       lead.Store
		storeCloser func()
	)
	if cfg.DB.DSN != "" {
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		store = pg
		storeCloser = pg.Close
	} else {
		store = memory.New()
	}

	scorer := signal.NewScorer(signal.Targeting{
		Geographies:   cfg.Targeting.Geographies,
		Niches:        cfg.Targeting.Niches,
		Threshold:     cfg.Signal.QualifyThreshold,
		RecencyWindow: config.Duration(cfg.Signal.RecencyWindow),
	}, clk, logger)

	outbound := dispatcher.New(dispatcher.Config{
		Suppressed:        cfg.Dispatch.Suppressed,
		MinRoleConfidence: cfg.Dispatch.MinRoleConfidence,
	}, clk, logger)

	orch := enrich.New(enrich.Config{
		BatchSize:       cfg.Enrich.BatchSize,
		Concurrency:     cfg.Enrich.Concurrency,
		StalenessWindow: config.Duration(cfg.Enrich.StalenessWindow),
	}, store, scorer, domains, emails, phones, outbound, clk, logger)

	server := api.NewServer(orch, store, g, []api.StatusReporter{domains, emails, phones}, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Guard:        g,
		Orchestrator: orch,
		Server:       server,
		storeCloser:  storeCloser,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.storeCloser != nil {
		a.storeCloser()
	}
	_ = a.Logger.Sync()
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
