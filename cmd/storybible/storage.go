package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storybible/internal/bible"
	"storybible/internal/config"
	"storybible/internal/store"
	badgerstore "storybible/internal/store/badger"
	"storybible/internal/store/file"
	"storybible/internal/store/memory"
	"storybible/internal/store/postgres"
	"storybible/internal/store/sqlite"
)

const configFile = "storybible.yaml"

func openAdapter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Adapter, error) {
	switch cfg.Storage.Backend {
	case "file":
		return file.New(cfg.Storage.Path)
	case "sqlite":
		return sqlite.New(ctx, cfg.Storage.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.Storage.DSN)
	case "badger":
		return badgerstore.New(badgerstore.Config{
			Path:       cfg.Storage.Path,
			SyncWrites: true,
			Logger:     logger,
		})
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// openService wires config, adapter, and logger into a bible service.
// The caller must Close the returned adapter.
func openService(ctx context.Context, logger *zap.Logger) (*bible.Service, store.Adapter, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	adapter, err := openAdapter(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	limits := bible.Limits{
		MaxEntities: cfg.Limits.MaxEntities,
		MaxThreads:  cfg.Limits.MaxThreads,
	}
	return bible.NewService(adapter, limits, logger), adapter, nil
}
