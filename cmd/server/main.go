package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mythicforge/internal/adapter/catalog/yamlfile"
	econmem "mythicforge/internal/adapter/economy/memory"
	"mythicforge/internal/adapter/economy/redisledger"
	eventmem "mythicforge/internal/adapter/events/memory"
	"mythicforge/internal/adapter/events/redispub"
	httpadapter "mythicforge/internal/adapter/http"
	invmem "mythicforge/internal/adapter/inventory/memory"
	"mythicforge/internal/adapter/inventory/redisinv"
	metricsinmem "mythicforge/internal/adapter/metrics/inmemory"
	"mythicforge/internal/adapter/redisconn"
	gormrepo "mythicforge/internal/adapter/repo/gorm"
	repomem "mythicforge/internal/adapter/repo/memory"
	"mythicforge/internal/adapter/repo/redisrepo"
	"mythicforge/internal/app/cooldown"
	"mythicforge/internal/app/engine"
	"mythicforge/internal/app/placeholder"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/app/registry"
	"mythicforge/internal/app/scheduler"
	"mythicforge/internal/app/session"
	"mythicforge/internal/config"
	"mythicforge/internal/domain/forge"
	"mythicforge/internal/logger"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("mythicforge server exited")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	b, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(log)

	if err := applySeeds(ctx, cfg, b); err != nil {
		return err
	}

	reg := registry.New(yamlfile.New(cfg.CatalogPath), b.bindings)
	if err := reg.Reload(ctx); err != nil {
		return fmt.Errorf("load forge definitions from %s: %w", cfg.CatalogPath, err)
	}

	kpi := metricsinmem.NewRecorder()
	cooldowns := cooldown.NewPolicy(b.cooldowns)
	eng := &engine.Engine{
		Store:       session.NewStore(b.sessions),
		Registry:    reg,
		Economy:     b.economy,
		Inventory:   b.inventory,
		Cooldowns:   cooldowns,
		Obligations: b.obligations,
		TxManager:   b.tx,
		Events:      b.events,
		Metrics:     kpi,
		Log:         logger.Component(log, "engine"),
		Settings:    engineSettings(cfg),
	}
	restored, err := eng.Recover(ctx, b.sessions)
	if err != nil {
		return err
	}
	log.Info().Int("sessions", restored).Msg("forge sessions restored")

	h := httpadapter.Handler{
		Engine: eng,
		Placeholders: placeholder.Resolver{
			Sessions:     eng,
			Cooldowns:    cooldowns,
			Economy:      b.economy,
			TickInterval: cfg.TickInterval,
			Scale:        cfg.CurrencyScale,
		},
		KPI:       kpi,
		BridgeKey: cfg.BridgeKey,
	}
	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)

	driver := scheduler.New(eng, cfg.TickInterval, logger.Component(log, "scheduler"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("mythicforge server listening")
		return s.Run()
	})
	g.Go(func() error {
		return driver.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func engineSettings(cfg config.Config) engine.Settings {
	settings := engine.DefaultSettings()
	settings.ReservationGrace = cfg.ReservationGrace
	settings.IdleRetention = cfg.IdleRetention
	settings.RetryBase = cfg.SettleRetryBase
	settings.RetryMax = cfg.SettleRetryMax
	settings.SettleConcurrency = cfg.SettleConcurrency
	return settings
}

type backends struct {
	sessions    ports.SessionRepository
	cooldowns   ports.CooldownRepository
	obligations ports.ObligationRepository
	bindings    ports.BindingRepository
	tx          ports.TxManager
	economy     ports.Economy
	inventory   ports.OutputGranter
	events      ports.SessionEventPublisher
	seed        func(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal) error
	closers     []func() error
}

func (b *backends) close(log zerolog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close backend")
		}
	}
}

// buildBackends picks postgres repositories when FORGE_DB_DSN is set and the
// redis ledger, inventory, cooldowns and event feed when FORGE_REDIS_URL is
// set. Anything left unconfigured runs in memory.
func buildBackends(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backends, error) {
	mem := repomem.NewStore()
	b := &backends{
		sessions:    repomem.NewSessionRepo(mem),
		cooldowns:   repomem.NewCooldownRepo(mem),
		obligations: repomem.NewObligationRepo(mem),
		bindings:    repomem.NewBindingRepo(mem),
		tx:          repomem.NewTxManager(mem),
	}

	if cfg.DBDSN != "" {
		db, err := gormrepo.OpenPostgres(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		applied, err := gormrepo.ApplyMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Strs("applied", applied).Msg("postgres migrations up to date")
		b.sessions = gormrepo.NewSessionRepo(db)
		b.cooldowns = gormrepo.NewCooldownRepo(db)
		b.obligations = gormrepo.NewObligationRepo(db)
		b.bindings = gormrepo.NewBindingRepo(db)
		b.tx = gormrepo.NewTxManager(db)
		if sqlDB, err := db.DB(); err == nil {
			b.closers = append(b.closers, sqlDB.Close)
		}
	} else {
		log.Warn().Msg("FORGE_DB_DSN not set, sessions are kept in memory only")
	}

	if cfg.RedisURL != "" {
		client, err := redisconn.Open(ctx, cfg.RedisURL, 15, 2*time.Second)
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		ledger := redisledger.New(client, cfg.CurrencyScale)
		b.economy = ledger
		b.seed = ledger.Seed
		b.inventory = redisinv.New(client)
		b.cooldowns = redisrepo.NewCooldownRepo(client)
		b.events = redispub.New(client)
		return b, nil
	}

	log.Warn().Msg("FORGE_REDIS_URL not set, using the in-memory ledger")
	ledger := econmem.NewLedger()
	b.economy = ledger
	b.seed = func(_ context.Context, owner forge.PlayerID, amount decimal.Decimal) error {
		ledger.Seed(owner, amount)
		return nil
	}
	b.inventory = invmem.NewInventory()
	b.events = eventmem.NewRecorder()
	return b, nil
}

func applySeeds(ctx context.Context, cfg config.Config, b *backends) error {
	if len(cfg.SeedBalances) == 0 {
		return nil
	}
	if cfg.IsProduction() {
		return errors.New("FORGE_SEED_BALANCES is not allowed in production")
	}
	seeds, err := cfg.Seeds()
	if err != nil {
		return err
	}
	for owner, amount := range seeds {
		if err := b.seed(ctx, owner, amount); err != nil {
			return fmt.Errorf("seed balance for %s: %w", owner, err)
		}
	}
	return nil
}
