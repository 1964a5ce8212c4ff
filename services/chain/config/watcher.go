// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Source yields the configuration in effect right now. Components read it
// per call so a reload takes effect on the next run.
type Source interface {
	Get() *ChainConfig
}

type staticSource struct{ cfg *ChainConfig }

func (s staticSource) Get() *ChainConfig { return s.cfg }

// Static returns a Source that always yields cfg.
func Static(cfg *ChainConfig) Source {
	return staticSource{cfg: cfg}
}

// Holder publishes the current ChainConfig to concurrent readers.
//
// Description:
//
//	Get is lock-free. Watch reloads the overlay file on change and swaps
//	the new value in atomically. A reload that fails to parse or validate
//	is logged and the previous value stays in place.
//
// Thread Safety: Safe for concurrent use.
type Holder struct {
	current  atomic.Pointer[ChainConfig]
	onChange []func(*ChainConfig)
	logger   *slog.Logger
}

// NewHolder creates a Holder seeded with cfg.
func NewHolder(cfg *ChainConfig) *Holder {
	h := &Holder{logger: slog.Default()}
	h.current.Store(cfg)
	return h
}

// Get returns the current configuration. Callers must not mutate it.
func (h *Holder) Get() *ChainConfig {
	return h.current.Load()
}

// OnChange registers fn to run after every successful reload. Must be
// called before Watch.
func (h *Holder) OnChange(fn func(*ChainConfig)) {
	h.onChange = append(h.onChange, fn)
}

// Reload re-reads path and swaps in the result.
func (h *Holder) Reload(ctx context.Context, path string) error {
	cfg, err := LoadWithOverlay(ctx, path)
	if err != nil {
		return err
	}
	h.current.Store(cfg)
	for _, fn := range h.onChange {
		fn(cfg)
	}
	h.logger.Info("chain config reloaded", slog.String("path", path))
	return nil
}

// Watch reloads path whenever it is written or replaced until ctx is done.
//
// Description:
//
//	The parent directory is watched rather than the file itself so editors
//	that save via rename are still observed. Watch blocks; run it in its own
//	goroutine.
//
// Outputs:
//
//	error - Non-nil if the watcher cannot be created. Reload errors are
//	logged, not returned.
func (h *Holder) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolving overlay path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watching %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := h.Reload(ctx, abs); err != nil {
				h.logger.Warn("chain config reload rejected, keeping previous values",
					slog.String("path", abs),
					slog.String("error", err.Error()),
				)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("config watcher error", slog.String("error", werr.Error()))
		}
	}
}
