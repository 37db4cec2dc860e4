// Package main is the entry point for the CS 1.6 community site backend.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/bot"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/config"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/gameserver"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/handler"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/cache"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/metrics"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/service"
)

const (
	poolStatsInterval = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}
	if err := db.RequireSchemaVersion(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Database schema is not usable")
	}

	m := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	catalogRepo := repository.NewCatalogRepository(dbPool.Pool)
	historyRepo := repository.NewHistoryRepository(dbPool.Pool)

	// Catalog cache is optional
	redisClient, err := cache.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Catalog cache disabled")
	}
	if redisClient != nil {
		defer closeRedis(redisClient)
	}

	// Initialize services
	spinService := service.NewSpinService(
		dbPool,
		userRepo,
		catalogRepo,
		historyRepo,
		cfg.Cases.CooldownWindow(),
		service.WithMetrics(m),
	)
	catalogService := service.NewCatalogService(catalogRepo, cache.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL))
	historyService := service.NewHistoryService(historyRepo, cfg.Cases.HistoryLimit)
	accountService := service.NewAccountService(userRepo)

	httpHandler := &handler.HTTPHandler{
		Spins:    spinService,
		Catalog:  catalogService,
		History:  historyService,
		Profiles: accountService,
		Health:   dbPool,
	}
	adminHandler := &handler.AdminHandler{
		Catalog:   catalogService,
		History:   historyService,
		Refresher: catalogService,
	}

	// Game server database is optional. Interfaces stay nil when it is off.
	if cfg.GameServer.Enabled() {
		gameDB, store, err := openGameServer(ctx, &cfg.GameServer)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize game server database")
		}
		defer gameDB.Close()

		reconcileService := service.NewReconcileService(store, userRepo, cfg.GameServer.PlaceholderAvatar, m)
		httpHandler.Stats = store
		httpHandler.Sync = reconcileService
		adminHandler.Stats = store
		adminHandler.Sync = reconcileService
	} else {
		log.Info().Msg("Game server database not configured, stats and sync disabled")
	}

	go reportPoolStats(ctx, dbPool, m)

	if !cfg.Log.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.NewRouter(httpHandler, m, cfg.HTTP.AdminToken),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var adminBot *bot.Bot
	if cfg.Bot.Token != "" {
		adminBot, err = bot.New(&bot.Dependencies{Config: cfg, AdminHandler: adminHandler})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go adminBot.Start()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	if err := waitForShutdown(sigChan, serverErr); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	if adminBot != nil {
		adminBot.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// waitForShutdown blocks until a signal arrives or the HTTP server fails.
// It returns the server error, or nil for a signal.
func waitForShutdown(signals <-chan os.Signal, serverErr <-chan error) error {
	select {
	case sig := <-signals:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		return nil
	case err := <-serverErr:
		return err
	}
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// openGameServer connects to MySQL and negotiates which optional tables and
// columns the store may read.
func openGameServer(ctx context.Context, cfg *config.GameServerConfig) (*sql.DB, *gameserver.Store, error) {
	gameDB, err := gameserver.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	caps, err := gameserver.NewSchemaGuard(gameDB).Negotiate(ctx)
	if err != nil {
		gameDB.Close()
		return nil, nil, err
	}

	return gameDB, gameserver.NewStore(gameDB, caps, cfg.ServerIP, cfg.MaxPlayers), nil
}

func reportPoolStats(ctx context.Context, pool *db.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordDBPoolStats(pool.Stat())
		}
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close redis client")
	}
}
