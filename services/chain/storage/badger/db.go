// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps an embedded BadgerDB instance for the chain service.
//
// The only current tenant is the search result cache. The wrapper owns
// option handling, transaction helpers and a background value-log GC loop.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config describes how to open a DB.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Used by tests.
	InMemory bool

	// ReadOnly opens an existing directory without write access.
	ReadOnly bool

	// GCInterval is the period of the value-log GC loop. Zero disables it.
	GCInterval time.Duration

	// Logger receives open/close and GC diagnostics. May be nil.
	Logger *slog.Logger
}

// DefaultConfig returns an on-disk configuration with a 10 minute GC loop.
// The caller sets Path.
func DefaultConfig() Config {
	return Config{GCInterval: 10 * time.Minute}
}

// InMemoryConfig returns a configuration for an ephemeral in-memory DB.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an opened BadgerDB plus its maintenance goroutine.
//
// Thread Safety: Safe for concurrent use. Transactions are per call.
type DB struct {
	db     *dgbadger.DB
	logger *slog.Logger

	stopGC    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
}

// OpenDB opens a BadgerDB according to cfg.
//
// Outputs:
//   - *DB: The opened database. The caller must Close it.
//   - error: Non-nil if the path is missing or Badger fails to open.
func OpenDB(cfg Config) (*DB, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger: path is required for on-disk DB")
		}
		opts = dgbadger.DefaultOptions(cfg.Path).WithReadOnly(cfg.ReadOnly)
	}
	opts = opts.WithLogger(nil)

	raw, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", cfg.Path, err)
	}

	db := &DB{db: raw, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory && !cfg.ReadOnly {
		db.stopGC = make(chan struct{})
		db.gcDone = make(chan struct{})
		go db.runGC(cfg.GCInterval)
	}

	logger.Debug("badger: opened",
		slog.String("path", cfg.Path),
		slog.Bool("in_memory", cfg.InMemory),
		slog.Bool("read_only", cfg.ReadOnly),
	)
	return db, nil
}

// WithTxn runs fn inside a read-write transaction and commits it.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Item is one key/value pair returned by ScanPrefix.
type Item struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time // zero when no TTL is set
}

// ScanPrefix returns every live entry whose key starts with prefix, in key order.
func (d *DB) ScanPrefix(ctx context.Context, prefix string) ([]Item, error) {
	var items []Item
	err := d.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value for %q: %w", item.Key(), err)
			}
			out := Item{Key: string(item.KeyCopy(nil)), Value: val}
			if exp := item.ExpiresAt(); exp > 0 {
				out.ExpiresAt = time.Unix(int64(exp), 0)
			}
			items = append(items, out)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: scan %q: %w", prefix, err)
	}
	return items, nil
}

// DropPrefix deletes every key under prefix.
func (d *DB) DropPrefix(prefix string) error {
	return d.db.DropPrefix([]byte(prefix))
}

// Close stops the GC loop and closes the database. Safe to call twice.
func (d *DB) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.stopGC != nil {
			close(d.stopGC)
			<-d.gcDone
		}
		err = d.db.Close()
	})
	return err
}

func (d *DB) runGC(interval time.Duration) {
	defer close(d.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			for {
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, dgbadger.ErrNoRewrite) {
					d.logger.Warn("badger: value log GC failed", slog.String("error", err.Error()))
				}
				break
			}
		}
	}
}
