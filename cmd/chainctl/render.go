// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

const (
	wrapWidth    = 88
	previewRunes = 240
)

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	dim    lipgloss.Style
	tool   lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
	answer lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, label: plain, dim: plain, tool: plain, ok: plain, failed: plain, answer: plain}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		tool:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		answer: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	}
}

// renderer prints chain results for humans.
type renderer struct {
	w      io.Writer
	styles styles
}

func newRenderer(w io.Writer, color bool) *renderer {
	return &renderer{w: w, styles: newStyles(color)}
}

// Result prints the answer, then the plan explanation and each step.
func (r *renderer) Result(res datatypes.ChainResult) {
	s := r.styles

	state := s.ok.Render(string(res.State))
	if res.State == datatypes.StateFailed {
		state = s.failed.Render(string(res.State))
	}
	header := fmt.Sprintf("%s %s", s.title.Render("Answer"), s.label.Render("[")+state+s.label.Render("]"))
	if res.Synthesized {
		header += " " + s.dim.Render("(synthesized)")
	}
	fmt.Fprintln(r.w, header)
	fmt.Fprintln(r.w, s.answer.Render(wordwrap.String(res.Result, wrapWidth)))

	if res.Explanation != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, s.title.Render("Plan"))
		fmt.Fprintln(r.w, wordwrap.String(res.Explanation, wrapWidth))
	}

	if len(res.Steps) > 0 {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, s.title.Render("Steps"))
	}
	for _, step := range res.Steps {
		mark := s.ok.Render("ok")
		if step.Error != "" {
			mark = s.failed.Render("failed")
		}
		fmt.Fprintf(r.w, "%d. %s %s %s\n",
			step.Index+1,
			s.tool.Render(step.Tool),
			mark,
			s.label.Render(step.Duration.Round(time.Millisecond).String()),
		)
		if step.Description != "" {
			fmt.Fprintln(r.w, indent(s.dim.Render(wordwrap.String(step.Description, wrapWidth-3))))
		}
		body := step.Output.Render()
		if step.Error != "" {
			body = step.Error
		}
		if preview, truncated := datatypes.TruncateRunes(body, previewRunes); preview != "" {
			if truncated {
				preview += "..."
			}
			fmt.Fprintln(r.w, indent(wordwrap.String(preview, wrapWidth-3)))
		}
	}

	if res.RunID != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, s.label.Render("run "+res.RunID))
	}
}

// Tools prints one block per tool.
func (r *renderer) Tools(specs []tools.Spec) {
	s := r.styles
	fmt.Fprintln(r.w, s.title.Render(fmt.Sprintf("%d tools", len(specs))))
	for _, spec := range specs {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, s.tool.Render(spec.Name))
		fmt.Fprintln(r.w, indent(wordwrap.String(spec.Purpose, wrapWidth-3)))
		if spec.Input != "" {
			fmt.Fprintln(r.w, indent(s.label.Render("input: ")+spec.Input))
		}
		if spec.Output != "" {
			fmt.Fprintln(r.w, indent(s.label.Render("output: ")+spec.Output))
		}
	}
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "   " + line
	}
	return strings.Join(lines, "\n")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
