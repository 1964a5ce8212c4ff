// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package app assembles a ready-to-run chain from configuration and the
// environment. The server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/controller"
	"github.com/AleutianAI/AleutianChain/services/chain/planner"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	badgerstore "github.com/AleutianAI/AleutianChain/services/chain/storage/badger"
	"github.com/AleutianAI/AleutianChain/services/chain/synth"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
)

// Options controls assembly.
type Options struct {
	// ConfigPath is an optional YAML overlay on the embedded defaults.
	ConfigPath string

	// CacheDir holds the persistent search cache. Empty disables
	// persistence unless CacheInMemory is set.
	CacheDir string

	// CacheInMemory keeps the search cache in an in-memory Badger DB.
	CacheInMemory bool

	// DefaultProvider applies to roles without CHAIN_<ROLE>_PROVIDER.
	DefaultProvider string

	// Clients overrides provider construction from the environment.
	Clients *providers.RoleClients

	// Observer receives run events in addition to logging and metrics.
	Observer controller.Observer

	Logger *slog.Logger
}

// App is an assembled chain.
//
// Thread Safety: Safe for concurrent use after New returns.
type App struct {
	Config     *config.Holder
	Limiter    *providers.RateLimiter
	Registry   *tools.Registry
	Controller *controller.Controller

	// DB is nil when the search cache is not persisted.
	DB *badgerstore.DB

	configPath string
	logger     *slog.Logger
}

// New builds an App.
//
// Description:
//
//	Loads the configuration, creates the per-role chat clients behind a
//	shared rate limiter, opens the search cache, registers the built-in
//	tools, and wires planner, synthesizer and controller. A cache that
//	cannot be opened is logged and the chain runs without persistence.
//
// Outputs:
//   - *App: The assembled chain. The caller must Close it.
//   - error: Non-nil on invalid configuration or provider setup.
func New(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	holder := config.NewHolder(cfg)

	limiter := providers.NewRateLimiter(cfg.RateLimits)
	holder.OnChange(func(c *config.ChainConfig) {
		limiter.SetLimits(c.RateLimits)
	})

	clients := opts.Clients
	if clients == nil {
		roles, err := providers.LoadRoleConfig(opts.DefaultProvider)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		clients, err = providers.NewProviderFactory(limiter).CreateRoleClients(roles)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	db := openCache(opts, logger)

	backend, err := search.NewFromConfig(cfg.Search, db, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("app: search backend: %w", err)
	}

	registry, err := tools.NewBuiltinRegistry(tools.Deps{
		Chat:   clients.Tools,
		Search: backend,
		Config: holder,
		Logger: logger,
	})
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("app: %w", err)
	}

	ctrl, err := assemble(clients, registry, holder, opts.Observer, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	return &App{
		Config:     holder,
		Limiter:    limiter,
		Registry:   registry,
		Controller: ctrl,
		DB:         db,
		configPath: opts.ConfigPath,
		logger:     logger,
	}, nil
}

func assemble(clients *providers.RoleClients, registry *tools.Registry, holder *config.Holder, extra controller.Observer, logger *slog.Logger) (*controller.Controller, error) {
	invoker, err := tools.NewInvoker(registry, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	pl, err := planner.NewPlanner(clients.Planner, registry, holder, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	sy, err := synth.NewSynthesizer(clients.Synth, holder, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	observers := controller.MultiObserver{
		controller.NewLogObserver(logger),
		controller.NewMetricsObserver(),
	}
	if extra != nil {
		observers = append(observers, extra)
	}

	return controller.New(controller.Config{
		Planner:     pl,
		Invoker:     invoker,
		Synthesizer: sy,
		Observer:    observers,
		Logger:      logger,
	})
}

func loadConfig(ctx context.Context, path string) (*config.ChainConfig, error) {
	if path != "" {
		cfg, err := config.LoadWithOverlay(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Default()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return cfg, nil
}

func openCache(opts Options, logger *slog.Logger) *badgerstore.DB {
	var cfg badgerstore.Config
	switch {
	case opts.CacheInMemory:
		cfg = badgerstore.InMemoryConfig()
	case opts.CacheDir != "":
		cfg = badgerstore.DefaultConfig()
		cfg.Path = opts.CacheDir
	default:
		return nil
	}
	cfg.Logger = logger

	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		logger.Warn("search cache unavailable, results will not be persisted",
			slog.String("path", opts.CacheDir),
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("search cache opened",
		slog.String("path", opts.CacheDir),
		slog.Bool("in_memory", opts.CacheInMemory),
	)
	return db
}

// Watch hot-reloads the overlay file until ctx is done. It returns at once
// when no overlay was given.
func (a *App) Watch(ctx context.Context) error {
	if a.configPath == "" {
		return nil
	}
	return a.Config.Watch(ctx, a.configPath)
}

// Ready reports whether the chain can serve requests.
func (a *App) Ready(ctx context.Context) error {
	if len(a.Registry.Names()) == 0 {
		return errors.New("no tools registered")
	}
	if a.DB == nil {
		return nil
	}
	return a.DB.WithReadTxn(ctx, func(*dgbadger.Txn) error { return nil })
}

// Close releases the search cache.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func closeQuietly(db *badgerstore.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("closing search cache", slog.String("error", err.Error()))
	}
}
