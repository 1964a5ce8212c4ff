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

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianChain/services/llm"
)

const (
	defaultHTTPTimeout     = 30 * time.Second
	defaultMaxAttempts     = 3
	defaultRequestsPerSec  = 2.0
	maxErrorBodyBytes      = 2048
	defaultInitialInterval = 500 * time.Millisecond
)

// HTTPConfig configures an HTTPBackend.
type HTTPConfig struct {
	// Endpoint is queried as GET <Endpoint>?q=<query>. Required.
	Endpoint string

	// RequestsPerSecond paces outgoing requests. Zero uses 2.
	RequestsPerSecond float64

	// MaxAttempts bounds retries on 429 and 403. Zero uses 3.
	MaxAttempts uint

	// InitialInterval is the first backoff delay. Zero uses 500ms.
	InitialInterval time.Duration

	// Client overrides the HTTP client.
	Client *http.Client

	Logger *slog.Logger
}

type httpResponse struct {
	Results []Result `json:"results"`
}

// HTTPBackend queries a JSON search endpoint.
//
// Description:
//
//	The endpoint must answer {"results":[{"title","url","snippet"}]}.
//	Requests are paced with a token bucket. 429 and 403 responses are
//	retried with exponential backoff, honouring Retry-After when present.
//	Any other non-2xx status fails immediately.
//
// Thread Safety: Safe for concurrent use.
type HTTPBackend struct {
	endpoint        *url.URL
	client          *http.Client
	limiter         *rate.Limiter
	maxAttempts     uint
	initialInterval time.Duration
	logger          *slog.Logger
}

// NewHTTPBackend validates cfg and builds the backend.
func NewHTTPBackend(cfg HTTPConfig) (*HTTPBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search: http: endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("search: http: invalid endpoint %q", cfg.Endpoint)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = defaultMaxAttempts
	}
	interval := cfg.InitialInterval
	if interval <= 0 {
		interval = defaultInitialInterval
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPBackend{
		endpoint:        u,
		client:          client,
		limiter:         rate.NewLimiter(rate.Limit(rps), 1),
		maxAttempts:     attempts,
		initialInterval: interval,
		logger:          logger,
	}, nil
}

// Search implements Backend.
func (b *HTTPBackend) Search(ctx context.Context, query string) ([]Result, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = b.initialInterval

	attempt := 0
	results, err := backoff.Retry(ctx, func() ([]Result, error) {
		attempt++
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
		return b.do(ctx, query)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(b.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.logger.Warn("search request retrying",
				slog.Int("attempt", attempt),
				slog.Duration("next", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("search: http: %w", err)
	}
	return results, nil
}

func (b *HTTPBackend) do(ctx context.Context, query string) ([]Result, error) {
	u := *b.endpoint
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		if secs, ok := retryAfterSeconds(resp.Header.Get("Retry-After")); ok {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, fmt.Errorf("status %d", resp.StatusCode)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, llm.SafeLogString(string(body))))
	}

	var parsed httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return parsed.Results, nil
}

// retryAfterSeconds parses the delay-seconds form of Retry-After.
func retryAfterSeconds(h string) (int, bool) {
	if h == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}
