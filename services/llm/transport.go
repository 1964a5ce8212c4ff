// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNilClient is returned when a Chat call reaches an uninitialized client.
var ErrNilClient = errors.New("client is nil")

// APIError is a provider reply that carried an error instead of a completion.
//
// Description:
//
//	StatusCode is the HTTP status for non-2xx replies and 0 when the error
//	object arrived inside a 200 body. Message is already redacted with
//	SafeLogString and is safe to log.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API returned %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: API error: %s - %s", e.Provider, e.Type, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// postJSON marshals payload, POSTs it to url with headers, and returns the
// body of a 200 reply. Any other status becomes an *APIError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%s: creating HTTP request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: HTTP request failed: %w", provider, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close response body",
				slog.String("provider", provider),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response body (status %d): %w", provider, resp.StatusCode, err)
	}

	slog.Debug("provider response received",
		slog.String("provider", provider),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_length", len(body)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    SafeLogString(string(body)),
		}
	}
	return body, nil
}

// wireError is the {"error": {"type", "message"}} object both hosted APIs
// return.
type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (w *wireError) toAPIError(provider string) error {
	return &APIError{Provider: provider, Type: w.Type, Message: SafeLogString(w.Message)}
}
