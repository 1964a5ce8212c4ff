// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner asks the planner model for a tool chain and accepts or
// rejects the result.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

// Planner turns a query into a validated plan.
//
// Thread Safety: Safe for concurrent use. The configuration is read once
// per call so reloads apply to the next plan.
type Planner struct {
	chat     providers.ChatClient
	catalog  Catalog
	cfg      config.Source
	prompts  *PromptBuilder
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPlanner creates a Planner.
//
// Inputs:
//   - chat: The planner-role chat client. Must not be nil.
//   - catalog: The tool registry. Must not be nil.
//   - cfg: Configuration source. Must not be nil.
//   - logger: Optional; slog.Default() when nil.
func NewPlanner(chat providers.ChatClient, catalog Catalog, cfg config.Source, logger *slog.Logger) (*Planner, error) {
	if chat == nil {
		return nil, errors.New("planner: chat client is required")
	}
	if catalog == nil {
		return nil, errors.New("planner: tool catalog is required")
	}
	if cfg == nil {
		return nil, errors.New("planner: config source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}
	return &Planner{
		chat:     chat,
		catalog:  catalog,
		cfg:      cfg,
		prompts:  prompts,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// Plan asks the planner model for a plan and validates it.
//
// Description:
//
//	Builds the system prompt from the registered tools, sends it with the
//	query, parses the reply, and validates the plan. Exactly one model
//	call is made; a rejected plan is never repaired or retried.
//
// Outputs:
//   - *datatypes.Plan: The accepted plan.
//   - error: A transport error, *PlanParseError, or *InvalidPlanError.
func (p *Planner) Plan(ctx context.Context, query string) (*datatypes.Plan, error) {
	ctx, span := otel.Tracer(plannerTracerName).Start(ctx, "planner.Planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.Int("query_len", utf8.RuneCountInString(query)))

	start := time.Now()
	cfg := p.cfg.Get().Planner

	fail := func(outcome string, err error) (*datatypes.Plan, error) {
		recordPlan(outcome, 0, time.Since(start))
		span.SetAttributes(attribute.String("outcome", outcome))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		p.logger.Warn("plan rejected",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	system, err := p.prompts.SystemPrompt(p.catalog.Specs())
	if err != nil {
		return fail(outcomeChatError, err)
	}

	reply, err := p.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: UserPrompt(query)},
	}, providers.ChatOptions{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return fail(outcomeChatError, fmt.Errorf("planner: chat: %w", err))
	}

	plan, err := ParsePlan(reply, cfg.ErrorExcerptRunes)
	if err != nil {
		return fail(outcomeParseError, err)
	}

	if err := Validate(plan, p.catalog, cfg.ForbiddenMarkers, p.validate); err != nil {
		return fail(outcomeInvalid, err)
	}

	recordPlan(outcomeAccepted, len(plan.Steps), time.Since(start))
	span.SetAttributes(
		attribute.String("outcome", outcomeAccepted),
		attribute.Int("step_count", len(plan.Steps)),
	)
	p.logger.Info("plan accepted",
		slog.Int("steps", len(plan.Steps)),
		slog.Duration("duration", time.Since(start)),
	)
	return plan, nil
}
