// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chain starts the Aleutian Chain API server.
//
// Aleutian Chain answers a natural-language query by asking a planner model
// for a tool plan, running the tools in order, and synthesizing a final
// answer when the last step did not produce one.
//
// Usage:
//
//	go run ./cmd/chain
//	go run ./cmd/chain -port 9090 -config ./chain.yaml
//
// With OpenAI for every role:
//
//	CHAIN_DEFAULT_PROVIDER=openai OPENAI_API_KEY=... go run ./cmd/chain
//
// Publishing run events to NATS:
//
//	NATS_URL=nats://localhost:4222 go run ./cmd/chain
//
// Example requests:
//
//	curl http://localhost:8080/v1/chain/health
//	curl http://localhost:8080/v1/chain/tools | jq
//	curl -X POST http://localhost:8080/v1/chain/run \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "How much would I save at $200 a month for 5 years at 4%?"}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianChain/services/chain"
	"github.com/AleutianAI/AleutianChain/services/chain/app"
	"github.com/AleutianAI/AleutianChain/services/chain/controller"
	"github.com/AleutianAI/AleutianChain/services/chain/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	configPath := flag.String("config", os.Getenv("CHAIN_CONFIG"), "Optional YAML overlay on the built-in configuration")
	cacheDir := flag.String("cache-dir", "", "Search cache directory (default ~/.aleutian/cache/search)")
	traceStdout := flag.Bool("trace-stdout", false, "Print spans to stderr")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := telemetry.NewLogger(os.Stderr, *logFormat, level)
	slog.SetDefault(logger)

	if err := run(*port, *debug, *configPath, resolveCacheDir(*cacheDir), *traceStdout, logger); err != nil {
		logger.Error("Chain server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(port int, debug bool, configPath, cacheDir string, traceStdout bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "aleutian-chain",
		Stdout:      traceStdout,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	var observer controller.Observer
	if url := os.Getenv("NATS_URL"); url != "" {
		nc, err := nats.Connect(url, nats.Name("aleutian-chain"), nats.MaxReconnects(-1))
		if err != nil {
			logger.Warn("NATS unavailable, run events will not be published",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
		} else {
			defer func() { _ = nc.Drain() }()
			natsObserver, err := controller.NewNATSObserver(nc, os.Getenv("NATS_SUBJECT_PREFIX"), logger)
			if err != nil {
				return err
			}
			observer = natsObserver
			logger.Info("Publishing run events to NATS", slog.String("url", url))
		}
	}

	chainApp, err := app.New(ctx, app.Options{
		ConfigPath:      configPath,
		CacheDir:        cacheDir,
		DefaultProvider: os.Getenv("CHAIN_DEFAULT_PROVIDER"),
		Observer:        observer,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := chainApp.Close(); err != nil {
			logger.Warn("Failed to close search cache", slog.String("error", err.Error()))
		}
	}()

	go func() {
		if err := chainApp.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Config watcher stopped", slog.String("error", err.Error()))
		}
	}()

	handlers, err := chain.NewHandlers(chain.HandlersConfig{
		Runner:  chainApp.Controller,
		Catalog: chainApp.Registry,
		Ready:   chainApp.Ready,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-chain"))
	router.Use(chain.RequestID())
	if debug {
		router.Use(gin.Logger())
	}
	chain.RegisterRoutes(router.Group("/v1"), handlers)
	chain.RegisterMetrics(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting Aleutian Chain server",
			slog.String("address", srv.Addr),
			slog.Int("tools", len(chainApp.Registry.Names())),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down Aleutian Chain server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// resolveCacheDir returns the flag value, then SEARCH_CACHE_DIR, then
// ~/.aleutian/cache/search. Empty means no persistent cache.
func resolveCacheDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if dir := os.Getenv("SEARCH_CACHE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aleutian", "cache", "search")
}
