package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exemplarparty/internal/cache"
	"exemplarparty/internal/config"
	"exemplarparty/internal/jobs"
	"exemplarparty/internal/logging"
	"exemplarparty/internal/repository"
	"exemplarparty/internal/repository/memstore"
	"exemplarparty/internal/repository/sqlstore"
	"exemplarparty/internal/service"
	"exemplarparty/internal/transport/rest"
	"exemplarparty/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}
	if err := cfg.Timers.Validate(); err != nil {
		logger.Fatal("invalid default timer settings", zap.Error(err))
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))

	// Redis is optional; without it codes are only checked against live rooms
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, running without caches", zap.Error(err))
			rdb = nil
		} else {
			logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger)

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.ExportPassword)
	exportSvc := service.NewExportService(store)
	games := service.NewGameService(store, authSvc, service.Options{
		Settings:     cfg.Timers,
		TickInterval: cfg.TickInterval,
		GMGrace:      cfg.GMGrace,
		PlayerGrace:  cfg.PlayerGrace,
	}, logger)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	games.SetBroadcaster(wsHub)
	if rdb != nil {
		games.SetCaches(cache.NewRoomCache(rdb), cache.NewLeaderboardCache(rdb), cache.NewTimerCache(rdb))
	}

	cleaner, err := jobs.NewCleaner(games, cfg.SweepSpec, logger)
	if err != nil {
		logger.Fatal("schedule cleaner", zap.Error(err))
	}
	cleaner.Start()

	// Create router with container
	router := rest.NewRouter(&rest.Container{
		Games:          games,
		AuthService:    authSvc,
		ExportService:  exportSvc,
		WSHandler:      ws.NewHandler(wsHub, games, cfg.WSRatePerSec, cfg.WSBurst, logger),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	cleaner.Stop(shutdownCtx)
	games.Shutdown(shutdownCtx)
	wsHub.Close()

	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	logger.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store := repository.NewMongoStore(client, cfg.MongoDB)
		if err := store.EnsureIndexes(ctx, cfg.MongoDB); err != nil {
			logger.Warn("ensure mongo indexes", zap.Error(err))
		}
		return store, nil
	case "postgres":
		store, err := sqlstore.Open(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		logger.Warn("using in-memory store, games are lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
