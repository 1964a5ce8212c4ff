// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the chain's tuning parameters.
//
// Defaults are embedded from chain_defaults.yaml. An optional overlay file
// replaces any subset of them, and a Holder can watch that file and swap
// in reloaded values while runs are in flight.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed chain_defaults.yaml
var defaultChainYAML []byte

// MaxYAMLFileSize bounds the size of an overlay file.
const MaxYAMLFileSize = 1 << 20

var configTracer = otel.Tracer("chain.config")

// =============================================================================
// Configuration Types
// =============================================================================

// ChainConfig holds every tunable of a chain run.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ChainConfig struct {
	Planner    PlannerConfig  `yaml:"planner"`
	Synth      SynthConfig    `yaml:"synth"`
	Tools      ToolsConfig    `yaml:"tools"`
	Search     SearchConfig   `yaml:"search"`
	RateLimits map[string]int `yaml:"rate_limits" validate:"dive,keys,oneof=openai anthropic ollama,endkeys,gte=0"`
}

// PlannerConfig configures plan generation and acceptance.
type PlannerConfig struct {
	// ForbiddenMarkers reject a plan when found in any step input.
	ForbiddenMarkers  []string `yaml:"forbidden_markers" validate:"dive,required"`
	Temperature       float64  `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens         int      `yaml:"max_tokens" validate:"gte=0"`
	ErrorExcerptRunes int      `yaml:"error_excerpt_runes" validate:"gt=0"`
}

// SynthConfig configures the result synthesizer.
type SynthConfig struct {
	// FailureMarkers in the last output trigger synthesis.
	FailureMarkers      []string `yaml:"failure_markers" validate:"dive,required"`
	DigestTruncateRunes int      `yaml:"digest_truncate_runes" validate:"gt=0"`
	Temperature         float64  `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens           int      `yaml:"max_tokens" validate:"gte=0"`
}

// ToolsConfig configures the LLM-backed tools and the coercion defaults.
type ToolsConfig struct {
	Temperature          float64         `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens            int             `yaml:"max_tokens" validate:"gte=0"`
	ContextTruncateRunes int             `yaml:"context_truncate_runes" validate:"gt=0"`
	Savings              SavingsDefaults `yaml:"savings"`
	BMI                  BMIDefaults     `yaml:"bmi"`
	Summarize            SummaryDefaults `yaml:"summarize"`
}

// SavingsDefaults fill computeSavings parameters that could not be extracted.
type SavingsDefaults struct {
	MonthlyAmount      float64 `yaml:"monthly_amount" validate:"gt=0"`
	Years              float64 `yaml:"years" validate:"gt=0"`
	AnnualInterestRate float64 `yaml:"annual_interest_rate" validate:"gte=0"`
}

// BMIDefaults fill computeBMI parameters that could not be extracted.
type BMIDefaults struct {
	HeightCm float64 `yaml:"height_cm" validate:"gt=0"`
	WeightKg float64 `yaml:"weight_kg" validate:"gt=0"`
}

// SummaryDefaults fill summarize parameters that could not be extracted.
type SummaryDefaults struct {
	MaxWords int `yaml:"max_words" validate:"gt=0"`
}

// SearchConfig configures the search tool's backends.
type SearchConfig struct {
	TopK     int           `yaml:"top_k" validate:"gt=0,lte=20"`
	MinScore float64       `yaml:"min_score" validate:"gte=0,lte=1"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	HTTP     SearchHTTP    `yaml:"http"`
}

// SearchHTTP configures the HTTP search backend. An empty Endpoint selects
// the simulated backend.
type SearchHTTP struct {
	Endpoint          string  `yaml:"endpoint" validate:"omitempty,url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	MaxAttempts       uint    `yaml:"max_attempts" validate:"gte=1,lte=10"`
}

// =============================================================================
// Loading
// =============================================================================

var (
	defaultOnce   sync.Once
	defaultMu     sync.Mutex
	cachedDefault *ChainConfig
	defaultErr    error

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Default returns the configuration parsed from the embedded defaults.
//
// Description:
//
//	Parsed once and cached. Callers receive a deep copy so the cached value
//	cannot be mutated.
//
// Thread Safety: Safe for concurrent use.
func Default() (*ChainConfig, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOnce.Do(func() {
		cachedDefault, defaultErr = Load(context.Background(), defaultChainYAML)
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return cachedDefault.Clone(), nil
}

// MustDefault is Default for callers that treat a broken embedded file as
// a programming error, such as tests and package-level fallbacks.
func MustDefault() *ChainConfig {
	cfg, err := Default()
	if err != nil {
		panic(err)
	}
	return cfg
}

// ResetDefault clears the cached default for testing.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	cachedDefault = nil
	defaultErr = nil
	defaultOnce = sync.Once{}
}

// Load parses and validates a complete configuration from YAML bytes.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*ChainConfig - The validated configuration.
//	error - Non-nil if parsing or validation fails.
func Load(ctx context.Context, data []byte) (*ChainConfig, error) {
	var cfg ChainConfig
	if err := decodeInto(ctx, &cfg, data, "config.Load"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithOverlay parses the embedded defaults and then applies the YAML
// file at path on top. Keys absent from the file keep their defaults;
// lists present in the file replace the default list.
func LoadWithOverlay(ctx context.Context, path string) (*ChainConfig, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: stat overlay: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("config: overlay exceeds maximum size (%d > %d)", info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading overlay: %w", err)
	}
	if err := decodeInto(ctx, base, data, "config.LoadWithOverlay"); err != nil {
		return nil, err
	}
	return base, nil
}

func decodeInto(ctx context.Context, cfg *ChainConfig, data []byte, spanName string) error {
	_, span := configTracer.Start(ctx, spanName)
	defer span.End()

	if len(data) == 0 {
		return fmt.Errorf("config: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return fmt.Errorf("config: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return fmt.Errorf("config: parsing YAML: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return fmt.Errorf("config: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("forbidden_markers", len(cfg.Planner.ForbiddenMarkers)),
		attribute.Int("failure_markers", len(cfg.Synth.FailureMarkers)),
		attribute.Int("search_top_k", cfg.Search.TopK),
	)
	slog.Debug("chain config loaded",
		slog.Int("forbidden_markers", len(cfg.Planner.ForbiddenMarkers)),
		slog.Int("failure_markers", len(cfg.Synth.FailureMarkers)),
		slog.String("search_endpoint", cfg.Search.HTTP.Endpoint),
	)
	return nil
}

// Clone returns a deep copy of c.
func (c *ChainConfig) Clone() *ChainConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Planner.ForbiddenMarkers = append([]string(nil), c.Planner.ForbiddenMarkers...)
	out.Synth.FailureMarkers = append([]string(nil), c.Synth.FailureMarkers...)
	if c.RateLimits != nil {
		out.RateLimits = make(map[string]int, len(c.RateLimits))
		for k, v := range c.RateLimits {
			out.RateLimits[k] = v
		}
	}
	return &out
}
