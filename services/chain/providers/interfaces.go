// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers gives the chain a provider-agnostic chat surface.
//
// Each LLM role in a chain run (PLANNER, SYNTH, TOOLS) can be bound to a
// different backend (Ollama, Anthropic, OpenAI). Callers only ever see
// ChatClient.
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for concurrent use.
package providers

import (
	"context"

	"github.com/AleutianAI/AleutianChain/services/llm"
)

// ChatClient is the single-call chat interface used by the planner, the
// synthesizer and the LLM-backed tools.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends messages and returns the assistant's response text.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - messages: Conversation messages (system, user, assistant).
	//   - opts: Provider-agnostic chat options.
	//
	// Outputs:
	//   - string: The assistant's response text.
	//   - error: Non-nil on failure.
	Chat(ctx context.Context, messages []llm.Message, opts ChatOptions) (string, error)
}

// ChatOptions holds provider-agnostic options for a chat request.
type ChatOptions struct {
	// Temperature controls randomness. Set to a negative value to omit it
	// from the request and use the provider's default. The zero value is
	// an explicit "most deterministic" setting.
	Temperature float64

	// MaxTokens limits the response length. Zero leaves the provider default.
	MaxTokens int

	// Model overrides the adapter's configured model for this request.
	Model string
}

// ChatFunc adapts a plain function to ChatClient.
type ChatFunc func(ctx context.Context, messages []llm.Message, opts ChatOptions) (string, error)

// Chat implements ChatClient.
func (f ChatFunc) Chat(ctx context.Context, messages []llm.Message, opts ChatOptions) (string, error) {
	return f(ctx, messages, opts)
}
