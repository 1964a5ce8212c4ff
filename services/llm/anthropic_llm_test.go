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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testAnthropicResp = `{"id":"msg_test","type":"message","role":"assistant","content":[{"type":"text","text":"Hello "},{"type":"text","text":"from mock"}]}`

func TestNewAnthropicClient_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicClient()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "anthropic:") {
		t.Errorf("error should include 'anthropic:' prefix, got: %s", err.Error())
	}
}

func TestAnthropicClient_Chat_SystemPromptLifted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.System) != 1 || req.System[0].Text != "be brief\n\nuse JSON" {
			t.Errorf("system = %+v, want joined system prompt", req.System)
		}
		if req.System[0].CacheControl != nil {
			t.Error("short system prompt should not be cached")
		}
		for _, m := range req.Messages {
			if m.Role == RoleSystem {
				t.Error("system role leaked into messages")
			}
		}
		if req.MaxTokens != defaultAnthropicMaxToken {
			t.Errorf("max_tokens = %d, want %d", req.MaxTokens, defaultAnthropicMaxToken)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testAnthropicResp))
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "", server.URL)
	got, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleSystem, Content: "use JSON"},
		{Role: RoleUser, Content: "hi"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello from mock" {
		t.Errorf("got %q, want %q", got, "Hello from mock")
	}
}

func TestAnthropicClient_Chat_LongSystemPromptCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.System) != 1 || req.System[0].CacheControl == nil {
			t.Errorf("long system prompt should carry cache_control, got %+v", req.System)
		}
		_, _ = w.Write([]byte(testAnthropicResp))
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "", server.URL)
	_, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: strings.Repeat("x", anthropicCacheThreshold+1)},
		{Role: RoleUser, Content: "hi"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnthropicClient_Chat_ErrorStatusRedacted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down sk-ant-REDACTED"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "", server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "returned 429") {
		t.Errorf("error = %q, want status", err.Error())
	}
	if strings.Contains(err.Error(), "sk-ant-api03-") {
		t.Errorf("error leaked key: %s", err.Error())
	}
}

func TestAnthropicClient_Chat_NoTextBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"msg","type":"message","role":"assistant","content":[{"type":"thinking"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "", server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, GenerationParams{})
	if err == nil || !strings.Contains(err.Error(), "no text block") {
		t.Fatalf("expected no text block error, got %v", err)
	}
}
