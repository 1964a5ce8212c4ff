// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package synth turns an execution trace into a final answer when the last
// step output cannot serve as one.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

// Apology is returned when synthesis fails.
const Apology = "I'm sorry, I could not produce a final answer from the collected results."

const (
	systemPrompt = "You are a helpful assistant. Combine the results of a sequence of tool calls " +
		"into one clear, coherent answer to the user's question. Use only the information in " +
		"the step results. If they do not contain the answer, say so plainly."

	userPromptFormat = "Question: %s\n\nPlan: %s\n\nStep results:\n%s\nWrite the final answer."
)

const synthTracerName = "chain.synth"

// synthTotal counts synthesis attempts.
//
// Labels:
//   - outcome: "success", "chat_error", "empty_reply"
var synthTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chain",
		Subsystem: "synth",
		Name:      "total",
		Help:      "Total synthesis attempts by outcome.",
	},
	[]string{"outcome"},
)

// Synthesizer produces a final answer from the executed steps.
//
// Thread Safety: Safe for concurrent use.
type Synthesizer struct {
	chat   providers.ChatClient
	cfg    config.Source
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. chat and cfg are required.
func NewSynthesizer(chat providers.ChatClient, cfg config.Source, logger *slog.Logger) (*Synthesizer, error) {
	if chat == nil {
		return nil, errors.New("synth: chat client is required")
	}
	if cfg == nil {
		return nil, errors.New("synth: config source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{chat: chat, cfg: cfg, logger: logger}, nil
}

// NeedsSynthesis reports whether last should be replaced by a synthesized
// answer, using the configured failure markers.
func (s *Synthesizer) NeedsSynthesis(last datatypes.InputValue) bool {
	return NeedsSynthesis(last, s.cfg.Get().Synth.FailureMarkers)
}

// NeedsSynthesis is true when last renders to blank text or contains any
// of markers, compared case-insensitively.
func NeedsSynthesis(last datatypes.InputValue, markers []string) bool {
	text := strings.TrimSpace(last.Render())
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Digest renders one line per step for the synthesis prompt.
//
// Description:
//
//	Each line reads "Step i (tool): <output>" with the output cut to limit
//	runes. Error steps show "ERROR: <message>" instead of their output.
func Digest(steps []datatypes.ExecutedStep, limit int) string {
	var b strings.Builder
	for _, step := range steps {
		var body string
		if step.IsError() {
			body = "ERROR: " + step.Error
		} else {
			out, cut := datatypes.TruncateRunes(step.Output.Render(), limit)
			body = out
			if cut {
				body += "..."
			}
		}
		fmt.Fprintf(&b, "Step %d (%s): %s\n", step.Index, step.Tool, body)
	}
	return b.String()
}

// Synthesize asks the synth model for a final answer. It never fails: on
// any error the Apology is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, steps []datatypes.ExecutedStep, explanation string) string {
	ctx, span := otel.Tracer(synthTracerName).Start(ctx, "synth.Synthesizer.Synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("step_count", len(steps)))

	cfg := s.cfg.Get().Synth
	start := time.Now()

	answer, err := s.ask(ctx, query, steps, explanation, cfg)
	if err != nil {
		outcome := "chat_error"
		var se *SynthesisError
		if errors.As(err, &se) && se.Err == nil {
			outcome = "empty_reply"
		}
		synthTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn("synthesis failed, returning apology",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return Apology
	}

	synthTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("answer_len", len(answer)))
	s.logger.Debug("synthesis complete", slog.Duration("duration", time.Since(start)))
	return answer
}

func (s *Synthesizer) ask(ctx context.Context, query string, steps []datatypes.ExecutedStep, explanation string, cfg config.SynthConfig) (string, error) {
	user := fmt.Sprintf(userPromptFormat, query, explanation, Digest(steps, cfg.DigestTruncateRunes))
	reply, err := s.chat.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: user},
	}, providers.ChatOptions{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return "", &SynthesisError{Reason: "chat", Err: err}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", &SynthesisError{Reason: "empty reply"}
	}
	return reply, nil
}
