package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/api"
	"equity-signal-engine/internal/cache"
	"equity-signal-engine/internal/database"
	"equity-signal-engine/internal/knowledge"
	"equity-signal-engine/internal/logging"
	"equity-signal-engine/internal/marketdata"
	"equity-signal-engine/internal/notification"
	"equity-signal-engine/internal/pipeline"
	"equity-signal-engine/internal/timeframe"
	"equity-signal-engine/internal/universe"
	"equity-signal-engine/internal/vault"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("Logging initialized")

	// Provider credentials can come from Vault instead of config
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Vault client")
	}
	if vaultClient.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		creds, err := vaultClient.GetProviderCredentials(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load provider credentials from Vault")
		}
		cfg.ProviderConfig.APIKey = creds.APIKey
		if creds.BaseURL != "" {
			cfg.ProviderConfig.BaseURL = creds.BaseURL
		}
		logger.Info().Msg("Provider credentials loaded from Vault")
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logging.Component(logger, "database"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	repo := database.NewRepository(db)

	cacheTTL := time.Duration(cfg.CoordinatorConfig.CacheTTL) * time.Second
	var seriesCache cache.SeriesCache
	if cfg.RedisConfig.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.RedisConfig, cacheTTL, logging.Component(logger, "cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
			seriesCache = cache.NewMemoryCache(cacheTTL)
		} else {
			seriesCache = redisCache
			defer redisCache.Close()
		}
	} else {
		seriesCache = cache.NewMemoryCache(cacheTTL)
	}

	provider := marketdata.NewClient(cfg.ProviderConfig.APIKey, cfg.ProviderConfig.BaseURL, cfg.ProviderConfig.HTTPTimeout)
	coordinator := timeframe.NewCoordinator(provider, seriesCache, cfg, logging.Component(logger, "coordinator"))

	var universeProvider universe.Provider
	if cfg.UniverseConfig.BaseURL != "" {
		universeProvider = universe.NewHTTPProvider(cfg.UniverseConfig.BaseURL)
	} else {
		universeProvider = universe.NewStaticProvider(cfg.UniverseConfig.Static)
	}

	notifyManager := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		notifyManager.AddNotifier(notification.NewWebhookNotifier(notification.WebhookConfig{
			WebhookURL: cfg.NotificationConfig.WebhookURL,
			Enabled:    cfg.NotificationConfig.Enabled,
		}))
		logger.Info().Msg("Webhook notifications enabled")
	}

	orchestrator := pipeline.NewOrchestrator(
		coordinator, repo, seriesCache, notifyManager, cfg,
		logging.Component(logger, "pipeline"),
	)

	engine := knowledge.NewEngine(
		repo,
		cfg.KnowledgeConfig.MinOutcomes,
		cfg.KnowledgeConfig.RecentOutcomeLimit,
		logging.Component(logger, "knowledge"),
	)
	matcher := knowledge.NewMatcher(
		repo, repo,
		cfg.KnowledgeConfig.RecentOutcomeLimit,
		cfg.KnowledgeConfig.SimilarityFloor,
		cfg.KnowledgeConfig.MaxMatches,
		logging.Component(logger, "matcher"),
	)

	server := api.NewServer(
		cfg.ServerConfig, repo, orchestrator, engine, matcher, universeProvider,
		logging.Component(logger, "api"),
	)

	var scheduler *cron.Cron
	if cfg.SchedulerConfig.Enabled {
		scheduler = cron.New()
		schedulerLogger := logging.Component(logger, "scheduler")

		_, err := scheduler.AddFunc(cfg.SchedulerConfig.ScanSpec, func() {
			runScheduledScan(universeProvider, orchestrator, cfg, schedulerLogger)
		})
		if err != nil {
			logger.Fatal().Err(err).Str("spec", cfg.SchedulerConfig.ScanSpec).Msg("Invalid scan schedule")
		}

		_, err = scheduler.AddFunc(cfg.SchedulerConfig.KnowledgeSpec, func() {
			if _, err := engine.Analyze(context.Background()); err != nil && err != knowledge.ErrInsufficientOutcomes {
				schedulerLogger.Error().Err(err).Msg("Scheduled knowledge analysis failed")
			}
		})
		if err != nil {
			logger.Fatal().Err(err).Str("spec", cfg.SchedulerConfig.KnowledgeSpec).Msg("Invalid knowledge schedule")
		}

		scheduler.Start()
		logger.Info().
			Str("scan_spec", cfg.SchedulerConfig.ScanSpec).
			Str("knowledge_spec", cfg.SchedulerConfig.KnowledgeSpec).
			Msg("Scheduler started")
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Shutdown complete")
}

// runScheduledScan pages through the universe in batch-sized windows. Each
// window is one append-mode batch; the first window of a run does the
// full-replace wipe so a scheduled scan always rebuilds the board.
func runScheduledScan(universeProvider universe.Provider, orchestrator *pipeline.Orchestrator, cfg *config.Config, logger zerolog.Logger) {
	batchSize := cfg.SchedulerConfig.BatchSize
	maxBatches := cfg.SchedulerConfig.MaxBatchesPerScan

	for batch := 0; batch < maxBatches; batch++ {
		start := batch * batchSize
		end := start + batchSize

		stocks, err := universeProvider.GetBatch(start, end)
		if err != nil {
			logger.Error().Err(err).Int("batch", batch).Msg("Universe fetch failed, aborting scheduled scan")
			return
		}
		if len(stocks) == 0 {
			return
		}

		mode := pipeline.ModeAppend
		if batch == 0 {
			mode = pipeline.ModeFullReplace
		}

		if _, err := orchestrator.RunBatch(context.Background(), stocks, mode); err != nil {
			logger.Error().Err(err).Int("batch", batch).Msg("Scheduled batch failed")
			return
		}
	}
}
