// Command seed writes the preset category catalogue for an existing game. It is a
// maintenance tool for games whose seeding failed at creation time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"exemplarparty/internal/config"
	"exemplarparty/internal/game"
	"exemplarparty/internal/logging"
	"exemplarparty/internal/repository"
	"exemplarparty/internal/repository/sqlstore"
	"exemplarparty/internal/service"
)

func main() {
	gameID := flag.String("game", "", "game id to seed")
	flag.Parse()
	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -game <game-id>")
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store service.CategoryStore
	var closeStore func(context.Context) error
	switch cfg.StoreDriver {
	case "mongo":
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatal("connect mongo", zap.Error(err))
		}
		s := repository.NewMongoStore(client, cfg.MongoDB)
		store, closeStore = s, s.Close
	case "postgres":
		s, err := sqlstore.Open(cfg.PostgresDSN, logger)
		if err != nil {
			logger.Fatal("connect postgres", zap.Error(err))
		}
		store, closeStore = s, s.Close
	default:
		logger.Fatal("seeding needs a persistent store", zap.String("driver", cfg.StoreDriver))
	}
	defer closeStore(context.Background())

	existing, err := store.AvailableCategories(ctx, *gameID)
	if err != nil {
		logger.Fatal("read categories", zap.Error(err))
	}
	for _, c := range existing {
		if c.IsPreset {
			logger.Info("presets already seeded", zap.String("game", *gameID), zap.Int("available", len(existing)))
			return
		}
	}

	if err := store.SeedCategories(ctx, *gameID, game.PresetCategories); err != nil {
		logger.Fatal("seed categories", zap.Error(err))
	}
	logger.Info("seeded presets", zap.String("game", *gameID), zap.Int("count", len(game.PresetCategories)))
}
