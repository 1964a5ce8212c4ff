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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianChain/services/chain"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

// serverClient talks to a running chain server.
type serverClient struct {
	baseURL string
	http    *http.Client
}

func newServerClient(baseURL string, timeout time.Duration) *serverClient {
	return &serverClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Run posts query to /v1/chain/run.
func (c *serverClient) Run(ctx context.Context, query string) (datatypes.ChainResult, error) {
	var result datatypes.ChainResult

	payload, err := json.Marshal(chain.RunRequest{Query: query})
	if err != nil {
		return result, fmt.Errorf("failed to create request body: %w", err)
	}

	url := c.baseURL + "/v1/chain/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return result, fmt.Errorf("chain server unavailable at %s: %w", c.baseURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chain.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return result, fmt.Errorf("chain server error (HTTP %d, %s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
		}
		return result, fmt.Errorf("chain server error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("failed to decode chain response: %w", err)
	}
	return result, nil
}
