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
	"os"
	"slices"
	"strings"
)

// Provider constants for supported LLM providers.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Role constants for the LLM roles of a chain run.
const (
	RolePlanner = "PLANNER"
	RoleSynth   = "SYNTH"
	RoleTools   = "TOOLS"
)

// ValidProviders contains the set of valid provider names.
var ValidProviders = []string{ProviderOllama, ProviderAnthropic, ProviderOpenAI}

// ProviderConfig holds the configuration for a single LLM provider instance.
type ProviderConfig struct {
	// Provider is the backend to use: "ollama", "anthropic", "openai".
	Provider string

	// Model is the provider-specific model identifier. Empty selects the
	// client's default.
	Model string

	// BaseURL is an optional endpoint override.
	BaseURL string

	// APIKey is the authentication key for cloud providers.
	APIKey string
}

// RoleConfig holds per-role provider configurations.
//
// Description:
//
//	Planner drives plan generation, Synth drives final-answer synthesis and
//	Tools backs summarize, computeGeneral, compareTexts, interpretMetrics,
//	directAnswer and the search summary.
type RoleConfig struct {
	Planner ProviderConfig
	Synth   ProviderConfig
	Tools   ProviderConfig
}

func isValidProvider(provider string) bool {
	return slices.Contains(ValidProviders, provider)
}

// ResolveOllamaURL resolves the Ollama server URL from OLLAMA_BASE_URL,
// defaulting to http://localhost:11434.
func ResolveOllamaURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

// InferProvider infers the provider from a model name prefix.
//
// Description:
//
//	"claude-*" maps to anthropic, "gpt-*" and "o<digit>*" to openai. Anything
//	else returns "". Used when CHAIN_<ROLE>_MODEL is set without a provider.
func InferProvider(model string) string {
	switch {
	case strings.HasPrefix(model, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(model, "gpt-"):
		return ProviderOpenAI
	case len(model) > 1 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9':
		return ProviderOpenAI
	}
	return ""
}

// LoadRoleConfig reads per-role provider configuration from environment variables.
//
// Description:
//
//	For each role reads CHAIN_<ROLE>_PROVIDER and CHAIN_<ROLE>_MODEL.
//
// Resolution order:
//  1. CHAIN_<ROLE>_PROVIDER -> explicit provider
//  2. InferProvider(CHAIN_<ROLE>_MODEL) when the model names a cloud family
//  3. defaultProvider
//
// Inputs:
//   - defaultProvider: Provider used when a role sets nothing. Empty means ollama.
//
// Outputs:
//   - *RoleConfig: Per-role configurations.
//   - error: Non-nil if an invalid provider is specified.
//
// Example:
//
//	cfg, err := LoadRoleConfig("")
func LoadRoleConfig(defaultProvider string) (*RoleConfig, error) {
	if defaultProvider == "" {
		defaultProvider = ProviderOllama
	}

	plannerCfg, err := loadSingleRoleConfig(RolePlanner, defaultProvider)
	if err != nil {
		return nil, fmt.Errorf("loading planner role config: %w", err)
	}
	synthCfg, err := loadSingleRoleConfig(RoleSynth, defaultProvider)
	if err != nil {
		return nil, fmt.Errorf("loading synth role config: %w", err)
	}
	toolsCfg, err := loadSingleRoleConfig(RoleTools, defaultProvider)
	if err != nil {
		return nil, fmt.Errorf("loading tools role config: %w", err)
	}

	return &RoleConfig{
		Planner: plannerCfg,
		Synth:   synthCfg,
		Tools:   toolsCfg,
	}, nil
}

func loadSingleRoleConfig(role, defaultProvider string) (ProviderConfig, error) {
	providerEnv := fmt.Sprintf("CHAIN_%s_PROVIDER", role)
	modelEnv := fmt.Sprintf("CHAIN_%s_MODEL", role)

	model := os.Getenv(modelEnv)
	provider := strings.ToLower(os.Getenv(providerEnv))
	if provider == "" {
		provider = InferProvider(model)
	}
	if provider == "" {
		provider = defaultProvider
	}

	if !isValidProvider(provider) {
		return ProviderConfig{}, fmt.Errorf("invalid provider %q for %s (valid: %v)", provider, providerEnv, ValidProviders)
	}

	cfg := ProviderConfig{
		Provider: provider,
		Model:    model,
	}

	switch provider {
	case ProviderOllama:
		cfg.BaseURL = ResolveOllamaURL()
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		cfg.BaseURL = os.Getenv("ANTHROPIC_BASE_URL")
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	slog.Debug("Resolved provider role",
		slog.String("role", role),
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.Model),
	)
	return cfg, nil
}
