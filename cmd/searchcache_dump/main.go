// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// searchcache_dump inspects the persisted search result cache.
//
// The chain server stores the results of every search tool call in BadgerDB,
// keyed by a hash of the normalized query. This tool opens the cache
// read-only and prints each entry: query hash, TTL remaining, and the cached
// results.
//
// Usage:
//
//	searchcache_dump [--path /path/to/search/cache] [--snippets]
//
// If --path is not given, reads SEARCH_CACHE_DIR from the environment,
// falling back to ~/.aleutian/cache/search/.
//
// Exit codes:
//
//	0: success, including an empty or missing cache
//	1: error opening or reading the database
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	badgerstore "github.com/AleutianAI/AleutianChain/services/chain/storage/badger"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
)

func main() {
	pathFlag := flag.String("path", "", "Path to the search cache BadgerDB directory (overrides SEARCH_CACHE_DIR)")
	snippets := flag.Bool("snippets", false, "Print result snippets")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("SEARCH_CACHE_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".aleutian", "cache", "search")
	}

	fmt.Printf("Search cache path: %s\n", dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Cache directory does not exist. No search has been cached yet.")
		os.Exit(0)
	}

	cfg := badgerstore.DefaultConfig()
	cfg.Path = dbPath
	cfg.ReadOnly = true
	cfg.GCInterval = 0
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = db.Close() }()

	if err := dump(context.Background(), os.Stdout, db, *snippets, time.Now()); err != nil {
		fatalf("%v", err)
	}
}

// dump writes every cache entry under search.CacheKeyPrefix to w.
func dump(ctx context.Context, w io.Writer, db *badgerstore.DB, withSnippets bool, now time.Time) error {
	items, err := db.ScanPrefix(ctx, search.CacheKeyPrefix)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "\nNo search cache entries found.")
		return nil
	}

	fmt.Fprintf(w, "\nFound %d search cache entr%s:\n", len(items), plural(len(items), "y", "ies"))
	fmt.Fprintln(w, strings.Repeat("─", 80))

	total := 0
	for i, item := range items {
		fmt.Fprintf(w, "\n[%d] Query hash: %s\n", i+1, strings.TrimPrefix(item.Key, search.CacheKeyPrefix))
		fmt.Fprintf(w, "    TTL:        %s\n", formatTTL(item.ExpiresAt, now))
		fmt.Fprintf(w, "    Raw size:   %s\n", formatBytes(len(item.Value)))

		results, err := search.DecodeResults(item.Value)
		if err != nil {
			fmt.Fprintf(w, "    DECODE ERROR: %v\n", err)
			continue
		}
		total += len(results)

		fmt.Fprintf(w, "    Results:    %d\n", len(results))
		for j, r := range results {
			fmt.Fprintf(w, "      %d. %s", j+1, r.Title)
			if r.Score != 0 {
				fmt.Fprintf(w, " (score %.3f)", r.Score)
			}
			fmt.Fprintln(w)
			if r.URL != "" {
				fmt.Fprintf(w, "         %s\n", r.URL)
			}
			if withSnippets && r.Snippet != "" {
				snippet, truncated := datatypes.TruncateRunes(r.Snippet, 160)
				if truncated {
					snippet += "..."
				}
				fmt.Fprintf(w, "         %s\n", snippet)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("─", 80))
	fmt.Fprintf(w, "Summary: %d entr%s, %d cached result%s\n",
		len(items), plural(len(items), "y", "ies"), total, plural(total, "", "s"))
	return nil
}

func formatTTL(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "no expiry set"
	}
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return fmt.Sprintf("EXPIRED (%s ago)", (-remaining).Round(time.Second))
	}
	return fmt.Sprintf("%s remaining (expires %s)",
		remaining.Round(time.Second),
		expiresAt.Format("2006-01-02 15:04:05 MST"),
	)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/1024/1024, n)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "searchcache_dump: "+format+"\n", args...)
	os.Exit(1)
}
