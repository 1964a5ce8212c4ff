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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	openaiProvider       = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel   = "gpt-4o-mini"
	openaiTimeout        = 120 * time.Second
)

// =============================================================================
// Wire Types
// =============================================================================

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	Temperature         *float32        `json:"temperature,omitempty"`
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
	TopP                *float32        `json:"top_p,omitempty"`
	Stop                []string        `json:"stop,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Error   *wireError     `json:"error,omitempty"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// =============================================================================
// Client
// =============================================================================

// OpenAIClient speaks the OpenAI Chat Completions API.
//
// Description:
//
//	Plain completions only. The chain never asks OpenAI for function calls
//	or streams; tool selection is done by the planner's JSON plan.
//
// Thread Safety: OpenAIClient is safe for concurrent use.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIClientWithConfig creates an OpenAIClient without reading the
// environment. Empty model or baseURL select the defaults.
func NewOpenAIClientWithConfig(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: openaiTimeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// NewOpenAIClient creates an OpenAIClient from OPENAI_API_KEY, OPENAI_MODEL
// and OPENAI_BASE_URL.
//
// Outputs:
//   - *OpenAIClient: The configured client.
//   - error: Non-nil if OPENAI_API_KEY is missing.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is missing (OPENAI_API_KEY)")
	}
	client := NewOpenAIClientWithConfig(apiKey, os.Getenv("OPENAI_MODEL"), os.Getenv("OPENAI_BASE_URL"))
	slog.Info("OpenAI client ready", slog.String("model", client.model))
	return client, nil
}

// Model returns the configured model name.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Generate implements LLMClient.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient.
//
// Description:
//
//	Roles other than system, user and assistant are sent as user. Non-200
//	replies and error objects in the body are returned as *APIError with
//	the provider text redacted.
//
// Thread Safety: This method is safe for concurrent use.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	req := o.buildRequest(messages, params)

	body, err := postJSON(ctx, o.httpClient, openaiProvider, o.baseURL,
		map[string]string{"Authorization": "Bearer " + o.apiKey}, req)
	if err != nil {
		return "", err
	}

	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openai: parsing response JSON: %w", err)
	}
	if resp.Error != nil {
		return "", resp.Error.toAPIError(openaiProvider)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: returned no choices")
	}

	choice := resp.Choices[0]
	slog.Debug("openai: completion",
		slog.String("model", req.Model),
		slog.String("finish_reason", choice.FinishReason),
		slog.Int("response_len", len(choice.Message.Content)),
	)
	return choice.Message.Content, nil
}

func (o *OpenAIClient) buildRequest(messages []Message, params GenerationParams) openaiRequest {
	req := openaiRequest{
		Model:               o.model,
		Messages:            make([]openaiMessage, 0, len(messages)),
		Temperature:         params.Temperature,
		MaxCompletionTokens: params.MaxTokens,
		TopP:                params.TopP,
		Stop:                params.Stop,
	}
	if params.ModelOverride != "" {
		req.Model = params.ModelOverride
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openaiMessage{Role: openaiRole(msg.Role), Content: msg.Content})
	}
	return req
}

func openaiRole(role string) string {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return role
	default:
		slog.Warn("openai: unknown message role sent as user", slog.String("role", role))
		return RoleUser
	}
}
