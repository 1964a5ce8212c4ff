// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianChain/services/llm"
)

// RateLimiter implements a sliding window rate limiter per provider.
//
// Description:
//
//	Limits the number of requests per minute to each cloud provider using
//	a sliding window of timestamps. When the limit is exceeded, returns
//	the duration until the next request can be made. Ollama is never
//	limited.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	windows map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with per-provider limits.
//
// Inputs:
//   - limitsPerMin: Requests per minute per provider. Providers not in the
//     map, or mapped to zero, are not limited.
func NewRateLimiter(limitsPerMin map[string]int) *RateLimiter {
	limits := make(map[string]int, len(limitsPerMin))
	for k, v := range limitsPerMin {
		limits[k] = v
	}
	return &RateLimiter{
		limits:  limits,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// SetLimits replaces the per-provider limits. Existing windows are kept.
func (r *RateLimiter) SetLimits(limitsPerMin map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = make(map[string]int, len(limitsPerMin))
	for k, v := range limitsPerMin {
		r.limits[k] = v
	}
}

// Allow checks whether a request to the given provider is within the rate limit.
//
// Outputs:
//   - bool: True if the request is allowed. The request is then recorded.
//   - time.Duration: If rate-limited, how long to wait before retrying.
func (r *RateLimiter) Allow(provider string) (bool, time.Duration) {
	if provider == ProviderOllama {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.limits[provider]
	if limit <= 0 {
		return true, 0
	}

	now := r.now()
	windowStart := now.Add(-time.Minute)

	timestamps := r.windows[provider]
	pruned := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= limit {
		r.windows[provider] = pruned
		return false, pruned[0].Add(time.Minute).Sub(now)
	}

	r.windows[provider] = append(pruned, now)
	return true, 0
}

// RateLimitedClient wraps a ChatClient so every call first passes the
// provider's RateLimiter.
//
// Description:
//
//	A denied call sleeps for the retry-after duration and tries again.
//	The wait is bounded by ctx.
//
// Thread Safety: Safe for concurrent use.
type RateLimitedClient struct {
	inner    ChatClient
	limiter  *RateLimiter
	provider string
	logger   *slog.Logger
}

// NewRateLimitedClient wraps inner with limiter under the given provider label.
func NewRateLimitedClient(inner ChatClient, limiter *RateLimiter, provider string) *RateLimitedClient {
	return &RateLimitedClient{
		inner:    inner,
		limiter:  limiter,
		provider: provider,
		logger:   slog.Default(),
	}
}

// Chat implements ChatClient.
func (c *RateLimitedClient) Chat(ctx context.Context, messages []llm.Message, opts ChatOptions) (string, error) {
	for {
		ok, wait := c.limiter.Allow(c.provider)
		if ok {
			break
		}
		chatRateLimitedTotal.WithLabelValues(c.provider).Inc()
		c.logger.Info("Provider rate limit reached, waiting",
			slog.String("provider", c.provider),
			slog.Duration("retry_after", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("providers: waiting for %s rate limit: %w", c.provider, ctx.Err())
		case <-timer.C:
		}
	}
	return c.inner.Chat(ctx, messages, opts)
}
