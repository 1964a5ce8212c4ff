// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm contains the raw provider clients used by the chain service.
//
// Each client speaks a single provider's chat API and exposes the same
// Chat/Generate surface so higher layers (providers, planner, tools) never
// see wire formats.
package llm

import "context"

// Message roles accepted by every client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams holds optional per-request generation settings.
//
// Description:
//
//	Pointer fields are omitted from the provider request when nil so the
//	provider default applies. ModelOverride replaces the client's configured
//	model for a single request.
type GenerationParams struct {
	Temperature   *float32
	MaxTokens     *int
	TopP          *float32
	TopK          *int
	Stop          []string
	ModelOverride string
}

// LLMClient is implemented by every provider client in this package.
//
// Thread Safety: Implementations must be safe for concurrent use.
type LLMClient interface {
	// Generate sends a single user prompt and returns the completion text.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends an ordered conversation and returns the assistant reply.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
