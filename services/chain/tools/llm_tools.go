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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/exectrace"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

// llmBase is shared by every tool that asks the TOOLS-role model.
type llmBase struct {
	chat   providers.ChatClient
	cfg    config.Source
	logger *slog.Logger
}

// ask sends one system/user exchange with the tools temperature and
// token budget.
func (b *llmBase) ask(ctx context.Context, system, user string) (string, error) {
	tc := b.cfg.Get().Tools
	reply, err := b.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, providers.ChatOptions{Temperature: tc.Temperature, MaxTokens: tc.MaxTokens})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// =============================================================================
// summarize
// =============================================================================

type summarizeTool struct{ llmBase }

func (t *summarizeTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	p, err := CoerceSummarize(call.Input, t.cfg.Get().Tools.Summarize)
	if err != nil {
		return datatypes.None(), err
	}
	recordDefaults("summarize", p.Defaulted)

	summary, err := t.ask(ctx, fmt.Sprintf(summarizeSystemPrompt, p.MaxWords), p.Text)
	if err != nil {
		return datatypes.None(), err
	}
	return datatypes.Text(summary), nil
}

// =============================================================================
// compareTexts
// =============================================================================

type compareTool struct{ llmBase }

func (t *compareTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	t1, t2, err := CoerceTwoTexts(call.Input)
	if err != nil {
		return datatypes.None(), err
	}

	similarities, err := t.ask(ctx, compareSystemPrompt, fmt.Sprintf(compareUserPrompt, t1, t2))
	if err != nil {
		return datatypes.None(), err
	}
	return datatypes.Record(map[string]any{
		"text1":        t1,
		"text2":        t2,
		"similarities": similarities,
	}), nil
}

// =============================================================================
// interpretMetrics
// =============================================================================

type metricsTool struct{ llmBase }

func (t *metricsTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	metrics, err := CoerceMetrics(call.Input)
	if err != nil {
		return datatypes.None(), err
	}
	text, err := t.ask(ctx, metricsSystemPrompt, fmt.Sprintf(metricsUserPrompt, metrics))
	if err != nil {
		return datatypes.None(), err
	}
	return datatypes.Text(text), nil
}

// =============================================================================
// directAnswer
// =============================================================================

type directTool struct{ llmBase }

func (t *directTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	query, extra := CoerceDirect(call.Input, call.Query)
	if query == "" {
		return datatypes.None(), fmt.Errorf("no question to answer")
	}

	ctxText := buildStepContext(call.Trace, t.cfg.Get().Tools.ContextTruncateRunes)
	if extra != "" {
		ctxText += "Additional context:\n" + extra + "\n\n"
	}

	user := query
	if ctxText != "" {
		user = fmt.Sprintf(directUserPrompt, strings.TrimRight(ctxText, "\n"), query)
	}

	answer, err := t.ask(ctx, directSystemPrompt, user)
	if err != nil {
		return datatypes.None(), err
	}
	return datatypes.Text(answer), nil
}

// buildStepContext renders earlier successful steps as
// "Step i (tool): <output>..." blocks.
func buildStepContext(tr exectrace.Reader, limit int) string {
	if tr == nil {
		return ""
	}
	steps := tr.Steps()
	if len(steps) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(directContextHeader)
	for _, s := range steps {
		if s.IsError() {
			continue
		}
		out, _ := datatypes.TruncateRunes(s.Output.Render(), limit)
		fmt.Fprintf(&sb, "Step %d (%s): %s...\n\n", s.Index, s.Tool, out)
	}
	return sb.String()
}

// =============================================================================
// computeGeneral
// =============================================================================

var (
	arithmeticPattern = regexp.MustCompile(`^[\d\s+\-*/().%^]+$`)
	arithmeticLead    = regexp.MustCompile(`(?i)^\s*(?:what\s+is|what's|calculate|compute|evaluate)\s+`)
	fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")
	operatorReplacer  = strings.NewReplacer("×", "*", "÷", "/", "−", "-")
)

type calculation struct {
	Answer      any    `json:"answer"`
	Code        string `json:"code"`
	PythonCode  string `json:"pythonCode"`
	Explanation string `json:"explanation"`
}

type generalTool struct{ llmBase }

func (t *generalTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	problem := generalProblem(call.Input)
	if problem == "" {
		problem = call.Query
	}
	if problem == "" {
		return datatypes.None(), fmt.Errorf("no calculation given")
	}

	if exprText, ok := ArithmeticExpression(problem); ok {
		result, err := EvalArithmetic(exprText)
		if err == nil {
			return datatypes.Record(map[string]any{
				"result":      result,
				"explanation": localEvalExplanation,
				"expression":  exprText,
			}), nil
		}
		t.logger.Debug("local arithmetic failed, asking model",
			slog.String("expression", exprText),
			slog.String("error", err.Error()),
		)
	}

	raw, err := t.ask(ctx, generalSystemPrompt, fmt.Sprintf(generalUserPrompt, problem))
	if err != nil {
		return datatypes.None(), err
	}

	calc, ok := ParseCalculation(raw)
	if !ok {
		return datatypes.Record(map[string]any{
			"result":      calculationFallback,
			"explanation": raw,
		}), nil
	}

	out := map[string]any{
		"result":      valueText(calc.Answer),
		"explanation": calc.Explanation,
	}
	if code := firstNonEmpty(calc.Code, calc.PythonCode); code != "" {
		out["code"] = code
	}
	return datatypes.Record(out), nil
}

// generalProblem picks the problem out of in. A record without a known key,
// typically an earlier step's output, is handed over whole.
func generalProblem(in datatypes.InputValue) string {
	if rec, ok := in.AsRecord(); ok {
		for _, k := range []string{"expression", "query", "problem", "question"} {
			if s := fieldText(rec, k); s != "" {
				return s
			}
		}
		if len(rec) == 0 {
			return ""
		}
	}
	return strings.TrimSpace(in.Render())
}

// ArithmeticExpression reports whether text is a pure arithmetic
// expression, after dropping a leading "what is"/"calculate" and trailing
// "?" or "=". The cleaned expression is returned.
func ArithmeticExpression(text string) (string, bool) {
	s := operatorReplacer.Replace(text)
	s = arithmeticLead.ReplaceAllString(s, "")
	s = strings.TrimRight(strings.TrimSpace(s), "?=. ")
	if s == "" || !arithmeticPattern.MatchString(s) {
		return "", false
	}
	if !strings.ContainsAny(s, "0123456789") || !strings.ContainsAny(s, "+-*/%^") {
		return "", false
	}
	return s, true
}

// EvalArithmetic evaluates expression deterministically and formats the
// result as the shortest decimal, rounded to 10 places.
func EvalArithmetic(expression string) (string, error) {
	v, err := expr.Eval(expression, nil)
	if err != nil {
		return "", err
	}

	var f float64
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		f = n
	default:
		return "", fmt.Errorf("non-numeric result %T", v)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("result is not finite")
	}
	if math.Abs(f) < 1e15 {
		f = math.Round(f*1e10) / 1e10
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// ParseCalculation decodes the model's JSON answer, directly or from the
// first fenced block.
func ParseCalculation(raw string) (calculation, bool) {
	var c calculation
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err == nil && c.Answer != nil {
		return c, true
	}
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		c = calculation{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &c); err == nil && c.Answer != nil {
			return c, true
		}
	}
	return calculation{}, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// search
// =============================================================================

type searchTool struct {
	llmBase
	backend search.Backend
}

func (t *searchTool) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	query := searchQuery(call.Input)
	if query == "" {
		query = call.Query
	}
	if query == "" {
		return datatypes.None(), fmt.Errorf("empty search query")
	}

	results, err := t.backend.Search(ctx, query)
	if err != nil {
		return datatypes.None(), fmt.Errorf("search: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for \"%s\":\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "\n%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}

	if len(results) > 1 {
		sb.WriteString("\nSummary: ")
		summary, err := t.summarize(ctx, query, results)
		if err != nil {
			t.logger.Warn("search summary failed", slog.String("error", err.Error()))
			summary = searchSummaryFailed
		}
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	return datatypes.Text(strings.TrimRight(sb.String(), "\n")), nil
}

func (t *searchTool) summarize(ctx context.Context, query string, results []search.Result) (string, error) {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Title + ": " + r.Snippet
	}
	summary, err := t.ask(ctx, searchSummarySystemPrompt,
		fmt.Sprintf(searchSummaryUserPrompt, query, strings.Join(parts, "\n\n")))
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

func searchQuery(in datatypes.InputValue) string {
	if rec, ok := in.AsRecord(); ok {
		return fieldText(rec, "query")
	}
	return strings.TrimSpace(in.Render())
}
