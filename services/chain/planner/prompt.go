// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

// =============================================================================
// Prompt Builder
// =============================================================================

const systemPromptTemplate = `You are an expert AI tool chain planner. Analyze the user's query and plan the sequence of tool calls that answers it.

Available tools:
{{range $i, $t := .Tools}}{{inc $i}}. {{$t.Name}} - {{$t.Purpose}}{{if $t.Input}} (input: {{$t.Input}}){{end}}
{{end}}
For each tool, specify what input to provide. An input may reference the output of an earlier step.

Respond in this JSON format:
{
  "steps": [
    {
      "tool": "toolName",
      "input": "specific input for this tool",
      "description": "why this step is needed"
    }
  ],
  "explanation": "Clear explanation of why this chain of tools was chosen"
}

IMPORTANT RULES:
- Be judicious about the number of steps - only include necessary tools
- For simple queries that only need one tool, just use that single tool
- When a calculation needs facts from the web, always put {{.SearchTool}} first
- The input field should contain either exact text to use or refer to "output from previous step" or "output from step N"
- An input may also be a JSON object with the fields the tool expects; each field may hold a reference on its own
- Always provide specific inputs, never generic or placeholder inputs
- Never concatenate a reference with other text using "+"
`

const userPromptFormat = "Plan a tool chain for this query: \"%s\""

type promptData struct {
	Tools      []tools.Spec
	SearchTool string
}

// PromptBuilder renders the planner system prompt from the tool catalog.
//
// Thread Safety: Safe for concurrent use.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the system prompt template.
func NewPromptBuilder() (*PromptBuilder, error) {
	tmpl, err := template.New("planner").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(systemPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("planner: parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// SystemPrompt renders the prompt for specs.
func (b *PromptBuilder) SystemPrompt(specs []tools.Spec) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, promptData{Tools: specs, SearchTool: tools.ToolSearch}); err != nil {
		return "", fmt.Errorf("planner: render prompt: %w", err)
	}
	return buf.String(), nil
}

// UserPrompt renders the user message for query.
func UserPrompt(query string) string {
	return fmt.Sprintf(userPromptFormat, query)
}
