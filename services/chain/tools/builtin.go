// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
)

// Built-in tool names.
const (
	ToolSearch           = "search"
	ToolSummarize        = "summarize"
	ToolComputeGeneral   = "computeGeneral"
	ToolComputeSavings   = "computeSavings"
	ToolCompareTexts     = "compareTexts"
	ToolComputeBMI       = "computeBMI"
	ToolInterpretMetrics = "interpretMetrics"
	ToolDirectAnswer     = "directAnswer"
)

// BuiltinSpecs describes the built-in tools in catalog order.
func BuiltinSpecs() []Spec {
	return []Spec{
		{
			Name:    ToolSearch,
			Purpose: "Searches the web for information",
			Input:   "text query",
			Output:  "text listing the results, with a summary when there are several",
		},
		{
			Name:    ToolSummarize,
			Purpose: "Summarizes long text into a concise form",
			Input:   "text, optionally with \"in at most N words\", or {text, maxWords}",
			Output:  "condensed text",
		},
		{
			Name:    ToolComputeGeneral,
			Purpose: "Performs general calculations and solves word problems",
			Input:   "arithmetic expression or word problem",
			Output:  "{result, explanation}",
		},
		{
			Name:    ToolComputeSavings,
			Purpose: "Calculates savings growth over time from a monthly amount, years and annual interest rate",
			Input:   "{monthlyAmount, years, annualInterestRate} or a sentence containing them",
			Output:  "{amount, totalContribution, interestEarned, years, monthlyAmount, annualInterestRate}",
		},
		{
			Name:    ToolCompareTexts,
			Purpose: "Compares two texts for similarities",
			Input:   "{text1, text2} or two quoted texts",
			Output:  "{text1, text2, similarities}",
		},
		{
			Name:    ToolComputeBMI,
			Purpose: "Calculates body mass index from height in cm and weight in kg",
			Input:   "{heightCm, weightKg} or a sentence containing them",
			Output:  "{bmi, category}",
		},
		{
			Name:    ToolInterpretMetrics,
			Purpose: "Interprets health metrics such as BMI or blood pressure",
			Input:   "text or record of metrics",
			Output:  "explanatory text",
		},
		{
			Name:    ToolDirectAnswer,
			Purpose: "Answers a question directly, using earlier step outputs as context",
			Input:   "question text or {query, context}",
			Output:  "free text",
		},
	}
}

// Deps are the collaborators the built-in tools need.
type Deps struct {
	// Chat is the TOOLS-role chat client. Required.
	Chat providers.ChatClient

	// Search backs the search tool. Required.
	Search search.Backend

	// Config supplies tool tuning and defaults. Required.
	Config config.Source

	Logger *slog.Logger
}

// RegisterBuiltins registers the eight built-in tools on r.
//
// Outputs:
//   - error: Non-nil when a dependency is missing or a name is taken.
func RegisterBuiltins(r *Registry, deps Deps) error {
	if r == nil {
		return fmt.Errorf("tools: builtins: registry must not be nil")
	}
	if deps.Chat == nil {
		return fmt.Errorf("tools: builtins: chat client must not be nil")
	}
	if deps.Search == nil {
		return fmt.Errorf("tools: builtins: search backend must not be nil")
	}
	if deps.Config == nil {
		return fmt.Errorf("tools: builtins: config must not be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := llmBase{chat: deps.Chat, cfg: deps.Config, logger: logger}
	impls := map[string]Tool{
		ToolSearch:           &searchTool{llmBase: base, backend: deps.Search},
		ToolSummarize:        &summarizeTool{llmBase: base},
		ToolComputeGeneral:   &generalTool{llmBase: base},
		ToolComputeSavings:   &savingsTool{cfg: deps.Config},
		ToolCompareTexts:     &compareTool{llmBase: base},
		ToolComputeBMI:       &bmiTool{cfg: deps.Config},
		ToolInterpretMetrics: &metricsTool{llmBase: base},
		ToolDirectAnswer:     &directTool{llmBase: base},
	}

	for _, spec := range BuiltinSpecs() {
		if err := r.Register(spec, impls[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding only the built-in tools.
func NewBuiltinRegistry(deps Deps) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r, deps); err != nil {
		return nil, err
	}
	return r, nil
}
