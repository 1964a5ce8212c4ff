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
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestChat_ErrorStatusIsTypedAPIError(t *testing.T) {
	server := newTestOpenAIServer(t, func(req openaiRequest) (int, any) {
		return http.StatusTooManyRequests, map[string]any{"error": map[string]string{"message": "slow down"}}
	})
	client := NewOpenAIClientWithConfig("test-key", "", server.URL)

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, GenerationParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Provider != "openai" || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !apiErr.Retryable() {
		t.Error("429 should be retryable")
	}
}

func TestChat_ErrorObjectInOKBody(t *testing.T) {
	server := newTestOpenAIServer(t, func(req openaiRequest) (int, any) {
		return http.StatusOK, map[string]any{"error": map[string]string{
			"type":    "invalid_request_error",
			"message": "bad model",
		}}
	})
	client := NewOpenAIClientWithConfig("test-key", "", server.URL)

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, GenerationParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 0 || apiErr.Type != "invalid_request_error" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Retryable() {
		t.Error("request errors are not retryable")
	}
	if got, want := err.Error(), "openai: API error: invalid_request_error - bad model"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		if got := (&APIError{StatusCode: tt.status}).Retryable(); got != tt.want {
			t.Errorf("Retryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestOllamaNilClient(t *testing.T) {
	var c OllamaClient
	_, err := c.Chat(context.Background(), nil, GenerationParams{})
	if !errors.Is(err, ErrNilClient) {
		t.Errorf("err = %v, want ErrNilClient", err)
	}
}
