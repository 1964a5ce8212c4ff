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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

// OllamaClient implements LLMClient for a local Ollama server.
//
// Description:
//
//	Delegates to langchaingo's llms.Model so the Ollama wire protocol is not
//	reimplemented here. Any llms.Model can be injected, which keeps the
//	client testable without a running server.
//
// Thread Safety: OllamaClient is safe for concurrent use if the wrapped
// llms.Model is (the langchaingo Ollama model is).
type OllamaClient struct {
	model llms.Model
	name  string
}

// NewOllamaClientWithConfig creates an OllamaClient for the given server and model.
//
// Inputs:
//   - baseURL: Ollama server URL. Empty selects http://localhost:11434.
//   - model: Model tag (e.g. "llama3.2"). Empty selects the package default.
//
// Outputs:
//   - *OllamaClient: The configured client.
//   - error: Non-nil if langchaingo rejects the configuration.
func NewOllamaClientWithConfig(baseURL, model string) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	lm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: creating client: %w", err)
	}
	slog.Info("Initializing Ollama client",
		slog.String("model", model),
		slog.String("base_url", baseURL),
	)
	return &OllamaClient{model: lm, name: model}, nil
}

// NewOllamaClient reads OLLAMA_BASE_URL and OLLAMA_MODEL from the environment.
func NewOllamaClient() (*OllamaClient, error) {
	return NewOllamaClientWithConfig(os.Getenv("OLLAMA_BASE_URL"), os.Getenv("OLLAMA_MODEL"))
}

// NewOllamaClientWithModel wraps an existing llms.Model.
func NewOllamaClientWithModel(model llms.Model, name string) *OllamaClient {
	return &OllamaClient{model: model, name: name}
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.name
}

// Generate implements LLMClient.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient by converting messages to langchaingo
// MessageContent values and calling GenerateContent.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if c.model == nil {
		return "", fmt.Errorf("ollama: %w", ErrNilClient)
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(toLangchainRole(msg.Role), msg.Content))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOptions(params)...)
	if err != nil {
		return "", fmt.Errorf("ollama: generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama: returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func toLangchainRole(role string) llms.ChatMessageType {
	switch strings.ToLower(role) {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func callOptions(params GenerationParams) []llms.CallOption {
	var opts []llms.CallOption
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.MaxTokens != nil && *params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	if params.ModelOverride != "" {
		opts = append(opts, llms.WithModel(params.ModelOverride))
	}
	return opts
}
