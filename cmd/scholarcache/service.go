package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache/redis"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache/sqlite"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/config"
)

// openService builds the cache service for the configured backend. The
// returned cleanup releases the store and must run before exit.
func openService(configPath string) (*cache.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc, err := cache.New(store, cfg.Cache, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
		_ = logger.Sync()
	}
	return svc, cleanup, nil
}

func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return sqlite.New(cfg.DBPath)
	case "redis":
		return redis.New(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newLogger() (*zap.SugaredLogger, error) {
	if !verbose {
		return zap.NewNop().Sugar(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.Sugar(), nil
}
