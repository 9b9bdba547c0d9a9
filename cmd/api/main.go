package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ocula-lovable/creative-forge/internal/adapter/memrepo"
	"github.com/ocula-lovable/creative-forge/internal/adapter/repo"
	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/http/handlers"
	"github.com/ocula-lovable/creative-forge/internal/http/httpapi"
	"github.com/ocula-lovable/creative-forge/internal/infra"
	"github.com/ocula-lovable/creative-forge/internal/infra/geoip"
	"github.com/ocula-lovable/creative-forge/internal/middleware"
	"github.com/ocula-lovable/creative-forge/internal/orchestrator"
	"github.com/ocula-lovable/creative-forge/internal/providers"
	"github.com/ocula-lovable/creative-forge/internal/status"
	"github.com/ocula-lovable/creative-forge/internal/storage"
)

// providerLatency simulates model inference time for the stock providers.
const providerLatency = 2 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var (
		accounts domain.AccountRepository
		ledger   domain.Ledger
		jobs     domain.JobRepository
		projects domain.ProjectRepository
	)
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		accountRepo := repo.NewAccountRepository(dbpool)
		accounts = accountRepo
		ledger = accountRepo
		jobs = repo.NewJobRepository(dbpool)
		projects = repo.NewProjectRepository(dbpool)
		logger.Info().Msg("using postgres stores")
	} else {
		store := memrepo.New()
		accounts = store.Accounts()
		ledger = store.Ledger()
		jobs = store.Jobs()
		projects = store.Projects()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	defer resolver.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	registry := providers.NewRegistry(
		providers.NewImageGenerator(providerLatency),
		providers.NewVideoGenerator(providerLatency),
		providers.NewAvatarGenerator(providerLatency),
		providers.NewScriptGenerator(fileStore, cfg.StorageBaseURL, providerLatency),
	)

	orch := orchestrator.New(ledger, jobs, registry, logger, orchestrator.Config{
		CreditCost:      cfg.CreditCost,
		RefundOnFailure: cfg.RefundOnFailure,
		ProviderTimeout: cfg.ProviderTimeout,
		MaxConcurrent:   int64(cfg.MaxConcurrentJobs),
	})

	sweeper := orchestrator.NewSweeper(jobs, ledger, logger, cfg.SweepInterval, cfg.ProviderTimeout, cfg.RefundOnFailure, cfg.CreditCost)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go func() {
		if err := sweeper.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweeper stopped")
		}
	}()

	app := handlers.NewApp(logger, cfg, accounts, projects, orch, status.NewService(jobs))

	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}
	router := httpapi.NewRouter(app, lookup)

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	stopSweeper()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to drain in-flight generations")
	}
	logger.Info().Msg("server stopped")
}
