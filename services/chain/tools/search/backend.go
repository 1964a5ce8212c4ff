// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search provides the backends behind the search tool: a built-in
// simulated corpus ranked with BM25, an HTTP backend with retry and client
// side pacing, and a Badger-backed cache that wraps either.
package search

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	badgerstore "github.com/AleutianAI/AleutianChain/services/chain/storage/badger"
)

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Backend answers a search query.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Backend interface {
	// Search returns the hits for query, best first. An empty slice with a
	// nil error means nothing was found.
	Search(ctx context.Context, query string) ([]Result, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, query string) ([]Result, error)

// Search implements Backend.
func (f BackendFunc) Search(ctx context.Context, query string) ([]Result, error) {
	return f(ctx, query)
}

// NewFromConfig builds the backend described by cfg.
//
// Description:
//
//	An empty HTTP endpoint selects the simulated corpus. The result is
//	always wrapped in a CachedBackend. db may be nil, in which case
//	nothing is persisted.
func NewFromConfig(cfg config.SearchConfig, db *badgerstore.DB, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var inner Backend
	if cfg.HTTP.Endpoint == "" {
		inner = NewSimulatedBackend(nil,
			WithTopK(cfg.TopK),
			WithMinScore(cfg.MinScore),
			WithLogger(logger),
		)
	} else {
		hb, err := NewHTTPBackend(HTTPConfig{
			Endpoint:          cfg.HTTP.Endpoint,
			RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
			MaxAttempts:       cfg.HTTP.MaxAttempts,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		inner = hb
	}

	return NewCachedBackend(inner, db, cfg.CacheTTL, logger)
}
