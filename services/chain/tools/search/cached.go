// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

// =============================================================================
// CachedBackend
// =============================================================================
//
// Search results from a remote endpoint are slow and rate limited. The
// cached backend keeps them in BadgerDB for a TTL and collapses concurrent
// identical queries into one upstream call.
//
// Storage layout:
//
//	search/results/v1/{sha256(normalized query)}  →  gob-encoded []Result
//	                                                  TTL: 24h by default

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	badgerstore "github.com/AleutianAI/AleutianChain/services/chain/storage/badger"
)

// CacheKeyPrefix is prepended to the query hash to form the BadgerDB key.
const CacheKeyPrefix = "search/results/v1/"

const defaultCacheTTL = 24 * time.Hour

var errCacheMiss = errors.New("cache miss")

// CachedBackend wraps a Backend with a Badger result cache.
//
// Description:
//
//	A nil store makes the cache a pass-through that still collapses
//	concurrent identical queries. Store failures are logged and the
//	upstream result is served.
//
// Thread Safety: Safe for concurrent use.
type CachedBackend struct {
	inner  Backend
	db     *badgerstore.DB
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedBackend wraps inner.
//
// Inputs:
//   - inner: The upstream backend. Must not be nil.
//   - db: Opened BadgerDB wrapper, or nil for no persistence.
//   - ttl: Entry lifetime. Zero uses 24h.
//   - logger: May be nil.
func NewCachedBackend(inner Backend, db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) (*CachedBackend, error) {
	if inner == nil {
		return nil, fmt.Errorf("search: cache: inner backend must not be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBackend{inner: inner, db: db, ttl: ttl, logger: logger}, nil
}

// Search implements Backend.
func (c *CachedBackend) Search(ctx context.Context, query string) ([]Result, error) {
	hash := QueryHash(query)

	v, err, shared := c.group.Do(hash, func() (any, error) {
		if cached, ok := c.load(ctx, hash); ok {
			return cached, nil
		}
		results, err := c.inner.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		c.save(ctx, hash, results)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("search cache: shared in-flight query", slog.String("hash", shortHash(hash)))
	}

	results := v.([]Result)
	return append([]Result(nil), results...), nil
}

func (c *CachedBackend) load(ctx context.Context, hash string) ([]Result, bool) {
	if c.db == nil {
		return nil, false
	}

	var raw []byte
	err := c.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(cacheKey(hash))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, errCacheMiss) {
		c.logger.Debug("search cache: miss", slog.String("hash", shortHash(hash)))
		return nil, false
	}
	if err != nil {
		c.logger.Warn("search cache: load failed", slog.String("error", err.Error()))
		return nil, false
	}

	results, err := DecodeResults(raw)
	if err != nil {
		c.logger.Warn("search cache: decode failed", slog.String("error", err.Error()))
		return nil, false
	}
	c.logger.Debug("search cache: hit",
		slog.String("hash", shortHash(hash)),
		slog.Int("results", len(results)),
	)
	return results, true
}

func (c *CachedBackend) save(ctx context.Context, hash string, results []Result) {
	if c.db == nil || len(results) == 0 {
		return
	}
	raw, err := encodeResults(results)
	if err != nil {
		c.logger.Warn("search cache: encode failed", slog.String("error", err.Error()))
		return
	}
	err = c.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.SetEntry(dgbadger.NewEntry(cacheKey(hash), raw).WithTTL(c.ttl))
	})
	if err != nil {
		c.logger.Warn("search cache: save failed", slog.String("error", err.Error()))
	}
}

// QueryHash is the hex SHA256 of the trimmed, lowercased query.
func QueryHash(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}

func cacheKey(hash string) []byte {
	return []byte(CacheKeyPrefix + hash)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8] + "..."
	}
	return h
}

func encodeResults(results []Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(results); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeResults decodes a cached entry.
func DecodeResults(data []byte) ([]Result, error) {
	var results []Result
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&results); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return results, nil
}
