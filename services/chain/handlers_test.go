// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockRunner implements Runner for testing.
type MockRunner struct {
	runFunc func(ctx context.Context, query string) datatypes.ChainResult
	queries []string
}

func (m *MockRunner) Run(ctx context.Context, query string) datatypes.ChainResult {
	m.queries = append(m.queries, query)
	if m.runFunc != nil {
		return m.runFunc(ctx, query)
	}
	return datatypes.ChainResult{
		RunID:  "run-1",
		Result: "Mock answer",
		Steps:  []datatypes.ExecutedStep{},
		State:  datatypes.StateDone,
	}
}

type staticCatalog []tools.Spec

func (s staticCatalog) Specs() []tools.Spec { return s }

func setupTestRouter(t *testing.T, runner Runner, ready func(context.Context) error) *gin.Engine {
	t.Helper()
	h, err := NewHandlers(HandlersConfig{
		Runner:  runner,
		Catalog: staticCatalog(tools.BuiltinSpecs()),
		Ready:   ready,
	})
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	r := gin.New()
	r.Use(RequestID())
	RegisterRoutes(r.Group("/v1"), h)
	RegisterMetrics(r)
	return r
}

func postRun(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, "/v1/chain/run", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewHandlers_RequiresCollaborators(t *testing.T) {
	if _, err := NewHandlers(HandlersConfig{Catalog: staticCatalog{}}); err == nil {
		t.Error("expected error without runner")
	}
	if _, err := NewHandlers(HandlersConfig{Runner: &MockRunner{}}); err == nil {
		t.Error("expected error without catalog")
	}
}

func TestHandleRun_Success(t *testing.T) {
	runner := &MockRunner{}
	router := setupTestRouter(t, runner, nil)

	w := postRun(t, router, `{"query":"  What is 2+2?  "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp datatypes.ChainResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Result != "Mock answer" {
		t.Errorf("result = %q, want %q", resp.Result, "Mock answer")
	}
	if len(runner.queries) != 1 || runner.queries[0] != "What is 2+2?" {
		t.Errorf("runner got %v, want trimmed query", runner.queries)
	}
	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("missing request id header: %q", w.Header().Get(RequestIDHeader))
	}
}

func TestHandleRun_FailedChainIsStillOK(t *testing.T) {
	runner := &MockRunner{runFunc: func(ctx context.Context, query string) datatypes.ChainResult {
		return datatypes.ChainResult{
			RunID:  "run-2",
			Result: "I could not plan how to answer this query. plan rejected: plan has no steps",
			Steps:  []datatypes.ExecutedStep{},
			State:  datatypes.StateFailed,
		}
	}}
	router := setupTestRouter(t, runner, nil)

	w := postRun(t, router, `{"query":"q"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp datatypes.ChainResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.State != datatypes.StateFailed {
		t.Errorf("state = %q, want failed", resp.State)
	}
}

func TestHandleRun_DetachesFromRequestCancellation(t *testing.T) {
	var runCtx context.Context
	runner := &MockRunner{runFunc: func(ctx context.Context, query string) datatypes.ChainResult {
		runCtx = ctx
		return datatypes.ChainResult{State: datatypes.StateDone, Steps: []datatypes.ExecutedStep{}}
	}}
	router := setupTestRouter(t, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "/v1/chain/run", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	cancel()

	if runCtx == nil {
		t.Fatal("runner was not called")
	}
	if runCtx.Err() != nil {
		t.Errorf("run context was cancelled with the request: %v", runCtx.Err())
	}
}

func TestHandleRun_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"query":`, "INVALID_REQUEST"},
		{"missing query", `{}`, "VALIDATION_FAILED"},
		{"blank query", `{"query":"   "}`, "VALIDATION_FAILED"},
		{"too long", `{"query":"` + strings.Repeat("a", 4001) + `"}`, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			router := setupTestRouter(t, runner, nil)

			w := postRun(t, router, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if len(runner.queries) != 0 {
				t.Error("runner must not be called for invalid requests")
			}
		})
	}
}

func TestHandleRun_MaxLengthAccepted(t *testing.T) {
	runner := &MockRunner{}
	router := setupTestRouter(t, runner, nil)
	w := postRun(t, router, `{"query":"`+strings.Repeat("é", 4000)+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d for 4000 runes, got %d", http.StatusOK, w.Code)
	}
}

func TestHandleTools(t *testing.T) {
	router := setupTestRouter(t, &MockRunner{}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/v1/chain/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ToolsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 8 || len(resp.Tools) != 8 {
		t.Errorf("count = %d, tools = %d, want 8", resp.Count, len(resp.Tools))
	}
	if resp.Tools[0].Name != tools.ToolSearch {
		t.Errorf("first tool = %q, want %q", resp.Tools[0].Name, tools.ToolSearch)
	}
}

func TestHandleHealthAndReady(t *testing.T) {
	router := setupTestRouter(t, &MockRunner{}, nil)
	for _, path := range []string{"/v1/chain/health", "/v1/chain/ready"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, w.Code)
		}
	}
}

func TestHandleReady_NotReady(t *testing.T) {
	router := setupTestRouter(t, &MockRunner{}, func(context.Context) error {
		return errors.New("search cache closed")
	})

	req, _ := http.NewRequest(http.MethodGet, "/v1/chain/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != "NOT_READY" {
		t.Errorf("code = %q, want NOT_READY", resp.Code)
	}
}

func TestRequestID_EchoesValidHeader(t *testing.T) {
	router := setupTestRouter(t, &MockRunner{}, nil)
	id := uuid.NewString()

	req, _ := http.NewRequest(http.MethodGet, "/v1/chain/health", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	req, _ = http.NewRequest(http.MethodGet, "/v1/chain/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("invalid request id must be replaced")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, &MockRunner{}, nil)
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default Go collector metrics")
	}
}
