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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianChain/services/llm"
)

// ProviderFactory creates ChatClient adapters from provider configuration.
//
// Description:
//
//	ProviderFactory is the single creation point for all chat adapters.
//	When a RateLimiter is supplied every created client is wrapped in a
//	RateLimitedClient.
//
// Thread Safety: ProviderFactory is safe for concurrent use after construction.
type ProviderFactory struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewProviderFactory creates a new ProviderFactory.
//
// Inputs:
//   - limiter: Optional shared rate limiter. May be nil.
func NewProviderFactory(limiter *RateLimiter) *ProviderFactory {
	return &ProviderFactory{
		limiter: limiter,
		logger:  slog.Default(),
	}
}

// CreateChatClient creates a ChatClient adapter for the given provider config.
//
// Outputs:
//   - ChatClient: The chat adapter for the specified provider.
//   - error: Non-nil if the provider is unsupported or construction fails.
//
// Example:
//
//	client, err := factory.CreateChatClient(ProviderConfig{
//	    Provider: "anthropic",
//	    Model:    "claude-3-5-haiku-20241022",
//	    APIKey:   "sk-ant-...",
//	})
func (f *ProviderFactory) CreateChatClient(cfg ProviderConfig) (ChatClient, error) {
	var client ChatClient

	switch cfg.Provider {
	case ProviderOllama:
		ollamaClient, err := llm.NewOllamaClientWithConfig(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("creating Ollama client: %w", err)
		}
		client = NewOllamaChatAdapter(ollamaClient)

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY required for Anthropic provider")
		}
		client = NewAnthropicChatAdapter(llm.NewAnthropicClientWithConfig(cfg.APIKey, cfg.Model, cfg.BaseURL))

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY required for OpenAI provider")
		}
		client = NewOpenAIChatAdapter(llm.NewOpenAIClientWithConfig(cfg.APIKey, cfg.Model, cfg.BaseURL))

	default:
		return nil, fmt.Errorf("unsupported provider: %q (valid: %v)", cfg.Provider, ValidProviders)
	}

	f.logger.Info("Created chat client",
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.Model),
		slog.Bool("rate_limited", f.limiter != nil),
	)

	if f.limiter != nil {
		return NewRateLimitedClient(client, f.limiter, cfg.Provider), nil
	}
	return client, nil
}

// RoleClients holds one ChatClient per chain role.
type RoleClients struct {
	Planner ChatClient
	Synth   ChatClient
	Tools   ChatClient
}

// CreateRoleClients creates the three role clients from a RoleConfig.
func (f *ProviderFactory) CreateRoleClients(cfg *RoleConfig) (*RoleClients, error) {
	if cfg == nil {
		return nil, fmt.Errorf("role config is nil")
	}
	planner, err := f.CreateChatClient(cfg.Planner)
	if err != nil {
		return nil, fmt.Errorf("planner role: %w", err)
	}
	synth, err := f.CreateChatClient(cfg.Synth)
	if err != nil {
		return nil, fmt.Errorf("synth role: %w", err)
	}
	tools, err := f.CreateChatClient(cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("tools role: %w", err)
	}
	return &RoleClients{Planner: planner, Synth: synth, Tools: tools}, nil
}
