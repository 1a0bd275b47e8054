package main

import (
	"context"
	"fmt"
	"strings"

	"storynexus/internal/alignment"
	"storynexus/internal/config"
	"storynexus/internal/consequence"
	"storynexus/internal/generation"
	"storynexus/internal/session"
	"storynexus/internal/store"
	"storynexus/internal/store/memory"
	"storynexus/internal/store/postgres"
	"storynexus/internal/store/sqlite"
)

// openStore picks a backend from the DSN scheme and ensures its schema.
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "memory://"):
		db = memory.New()
	case strings.HasPrefix(dsn, "sqlite://"):
		db, err = sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err = postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn %q: expected memory://, sqlite:// or postgres://", dsn)
	}
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func loadConfig() (*config.ProjectConfig, error) {
	return config.Load(configPath)
}

type storeHandle = store.Store

// withStore runs fn against the configured store and closes it afterwards.
func withStore(fn func(ctx context.Context, db storeHandle) error) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return fn(ctx, db)
}

func newMachine(db store.Store) *session.Machine {
	return session.NewMachine(db, consequence.NewEngine(db, alignment.NewAggregator(db)))
}

// openGenerator builds the configured generation service. The returned
// close function is always safe to call.
func openGenerator(ctx context.Context, cfg config.GenerationConfig) (*generation.Generator, func(), error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := generation.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, func() {}, err
		}
		return generation.NewGenerator(client), func() { client.Close() }, nil
	default:
		client, err := generation.NewChatClient(generation.ChatConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return generation.NewGenerator(client), func() {}, nil
	}
}
