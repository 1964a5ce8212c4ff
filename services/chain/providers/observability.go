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
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianChain/services/llm"
)

// chatTracerName is the tracer every chat adapter starts spans on.
const chatTracerName = "chain.providers"

var (
	// Labels: provider (anthropic, openai, ollama), status (success, error).
	chatCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chain",
			Subsystem: "chat",
			Name:      "call_duration_seconds",
			Help:      "Latency of provider chat calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	chatCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "chat",
			Name:      "calls_total",
			Help:      "Provider chat calls by outcome.",
		},
		[]string{"provider", "status"},
	)

	chatErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "chat",
			Name:      "errors_total",
			Help:      "Failed provider chat calls by error type.",
		},
		[]string{"provider", "error_type"},
	)

	// chatRateLimitedTotal counts calls that had to wait for the rate limiter.
	chatRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "chat",
			Name:      "rate_limited_total",
			Help:      "Provider chat calls that waited for the rate limiter.",
		},
		[]string{"provider"},
	)
)

// Error type labels for chain_chat_errors_total.
const (
	errTypeNilClient = "nil_client"
	errTypeTimeout   = "timeout"
	errTypeAuth      = "auth"
	errTypeRateLimit = "rate_limit"
	errTypeServer    = "server"
	errTypeRejected  = "rejected"
	errTypeUnknown   = "unknown"
)

// classifyChatError maps an error to an error_type label. Typed errors from
// the llm package are checked first; the message is only consulted for
// errors that crossed a library boundary untyped (langchaingo, net/http).
func classifyChatError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, llm.ErrNilClient) {
		return errTypeNilClient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTypeTimeout
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return errTypeAuth
		case code == http.StatusTooManyRequests:
			return errTypeRateLimit
		case code >= http.StatusInternalServerError:
			return errTypeServer
		default:
			return errTypeRejected
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return errTypeTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return errTypeRateLimit
	default:
		return errTypeUnknown
	}
}

// recordChatMetrics records one finished ChatClient call.
func recordChatMetrics(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		chatErrorsTotal.WithLabelValues(provider, classifyChatError(err)).Inc()
	}
	chatCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	chatCallsTotal.WithLabelValues(provider, status).Inc()
}
