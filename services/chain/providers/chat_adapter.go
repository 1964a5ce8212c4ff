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
	"time"

	"github.com/AleutianAI/AleutianChain/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LLMChatAdapter wraps an llm.LLMClient to implement ChatClient.
//
// Description:
//
//	Translates ChatOptions into llm.GenerationParams, opens a span named
//	"providers.<Provider>ChatAdapter.Chat" and records call metrics under
//	the provider label.
//
// Thread Safety: LLMChatAdapter is safe for concurrent use.
type LLMChatAdapter struct {
	client   llm.LLMClient
	provider string
	spanName string
}

// NewOpenAIChatAdapter creates an adapter around an OpenAIClient.
func NewOpenAIChatAdapter(client *llm.OpenAIClient) *LLMChatAdapter {
	return newLLMChatAdapter(client, ProviderOpenAI, "providers.OpenAIChatAdapter.Chat")
}

// NewAnthropicChatAdapter creates an adapter around an AnthropicClient.
func NewAnthropicChatAdapter(client *llm.AnthropicClient) *LLMChatAdapter {
	return newLLMChatAdapter(client, ProviderAnthropic, "providers.AnthropicChatAdapter.Chat")
}

// NewOllamaChatAdapter creates an adapter around an OllamaClient.
func NewOllamaChatAdapter(client *llm.OllamaClient) *LLMChatAdapter {
	return newLLMChatAdapter(client, ProviderOllama, "providers.OllamaChatAdapter.Chat")
}

func newLLMChatAdapter(client llm.LLMClient, provider, spanName string) *LLMChatAdapter {
	a := &LLMChatAdapter{provider: provider, spanName: spanName}
	// A typed nil pointer must stay detectable as a nil client.
	switch c := client.(type) {
	case *llm.OpenAIClient:
		if c != nil {
			a.client = c
		}
	case *llm.AnthropicClient:
		if c != nil {
			a.client = c
		}
	case *llm.OllamaClient:
		if c != nil {
			a.client = c
		}
	default:
		a.client = client
	}
	return a
}

// Provider returns the provider label used for spans and metrics.
func (a *LLMChatAdapter) Provider() string {
	return a.provider
}

// Chat implements ChatClient by delegating to the wrapped client.
func (a *LLMChatAdapter) Chat(ctx context.Context, messages []llm.Message, opts ChatOptions) (string, error) {
	if a.client == nil {
		err := fmt.Errorf("%s: %w", a.provider, llm.ErrNilClient)
		recordChatMetrics(a.provider, 0, err)
		return "", err
	}

	ctx, span := otel.Tracer(chatTracerName).Start(ctx, a.spanName,
		trace.WithAttributes(
			attribute.String("provider", a.provider),
			attribute.Int("message_count", len(messages)),
			attribute.Float64("temperature", opts.Temperature),
		),
	)
	defer span.End()

	params := llm.GenerationParams{ModelOverride: opts.Model}
	if opts.Temperature >= 0 {
		temp := float32(opts.Temperature)
		params.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		params.MaxTokens = &maxTokens
	}

	startTime := time.Now()
	result, err := a.client.Chat(ctx, messages, params)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordChatMetrics(a.provider, duration, err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response_len", len(result)))
	recordChatMetrics(a.provider, duration, nil)
	return result, nil
}
