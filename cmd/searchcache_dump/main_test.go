// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerstore "github.com/AleutianAI/AleutianChain/services/chain/storage/badger"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
)

func openTestDB(t *testing.T) *badgerstore.DB {
	t.Helper()
	db, err := badgerstore.OpenDB(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dump(context.Background(), &buf, openTestDB(t), false, time.Now()))
	assert.Contains(t, buf.String(), "No search cache entries found.")
}

func TestDump_Entries(t *testing.T) {
	db := openTestDB(t)
	inner := search.BackendFunc(func(_ context.Context, query string) ([]search.Result, error) {
		return []search.Result{
			{Title: "Keeling Curve", URL: "https://example.org/co2", Snippet: "CO2 is about 420 ppm", Score: 0.91},
			{Title: "Carbon cycle"},
		}, nil
	})
	cached, err := search.NewCachedBackend(inner, db, time.Hour, nil)
	require.NoError(t, err)
	_, err = cached.Search(context.Background(), "co2 levels")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dump(context.Background(), &buf, db, true, time.Now()))
	out := buf.String()

	assert.Contains(t, out, "Found 1 search cache entry")
	assert.Contains(t, out, search.QueryHash("co2 levels"))
	assert.Contains(t, out, "1. Keeling Curve (score 0.910)")
	assert.Contains(t, out, "https://example.org/co2")
	assert.Contains(t, out, "CO2 is about 420 ppm")
	assert.Contains(t, out, "remaining")
	assert.Contains(t, out, "Summary: 1 entry, 2 cached results")
}

func TestFormatTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "no expiry set", formatTTL(time.Time{}, now))
	assert.Equal(t, "EXPIRED (1m0s ago)", formatTTL(now.Add(-time.Minute), now))
	assert.Contains(t, formatTTL(now.Add(time.Hour), now), "1h0m0s remaining")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "2.0 KB (2048 bytes)", formatBytes(2048))
	assert.Equal(t, "1.0 MB (1048576 bytes)", formatBytes(1024*1024))
}
