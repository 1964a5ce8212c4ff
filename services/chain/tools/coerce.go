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
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

// =============================================================================
// Coercion
// =============================================================================
//
// Planner output is loose: a step may hand a tool a record with the right
// keys, a record with near-miss keys, or a sentence. The Coerce functions
// turn whatever arrived into typed parameters. Anything they cannot find
// falls back to the configured default and is listed in Defaulted.

var (
	amountSuffixPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:€|eur|euros?|dollars?|\$|per month|/month|a month)`)
	amountPrefixPattern = regexp.MustCompile(`[€$]\s*(\d+(?:\.\d+)?)`)
	yearsPattern        = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:years?|yrs?)\b`)
	interestPattern     = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:%|percent|interest)`)

	heightCmPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*cm`)
	heightMPattern  = regexp.MustCompile(`(?i)(\d(?:[.,]\d+)?)\s*m\b`)
	weightKgPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*kg`)

	quotedPattern   = regexp.MustCompile("\"([^\"]+)\"|'([^']+)'|`([^`]+)`")
	maxWordsPattern = regexp.MustCompile(`(?i)(?:max(?:imum)?|in|under|at most)\s+(\d+)\s+words?`)

	thousandsPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// wordSeparators are tried in order when splitting free text into two
// texts. Punctuation separators follow.
var wordSeparators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bvs\b\.?`),
	regexp.MustCompile(`(?i)\bversus\b`),
	regexp.MustCompile(`(?i)\band\b`),
	regexp.MustCompile(`(?i)\bwith\b`),
}

var punctSeparators = []string{";", ","}

// SavingsParams are the inputs of computeSavings.
type SavingsParams struct {
	MonthlyAmount      float64
	Years              float64
	AnnualInterestRate float64
	Defaulted          []string
}

// CoerceSavings extracts savings parameters from in.
//
// Description:
//
//	Record keys: monthlyAmount, monthly, amount or rate for the monthly
//	amount; years; annualInterestRate, interestRate or interest for the
//	rate. Values may be numbers or numeric strings. Free text is scanned
//	with currency, year and percent patterns; decimal commas are accepted.
//	A non-positive amount or term, or a negative rate, counts as missing.
//
// Outputs:
//   - SavingsParams: Always populated; Defaulted lists the fallbacks used.
func CoerceSavings(in datatypes.InputValue, d config.SavingsDefaults) SavingsParams {
	var (
		monthly, years, rate          float64
		hasMonthly, hasYears, hasRate bool
	)

	if rec, ok := in.AsRecord(); ok {
		monthly, hasMonthly = firstNumber(rec, "monthlyAmount", "monthly", "amount", "rate")
		years, hasYears = firstNumber(rec, "years")
		rate, hasRate = firstNumber(rec, "annualInterestRate", "interestRate", "interest")
	} else {
		text := in.Render()
		monthly, hasMonthly = matchNumber(amountSuffixPattern, text)
		if !hasMonthly {
			monthly, hasMonthly = matchNumber(amountPrefixPattern, text)
		}
		years, hasYears = matchNumber(yearsPattern, text)
		rate, hasRate = matchNumber(interestPattern, text)
	}

	hasMonthly = hasMonthly && monthly > 0
	hasYears = hasYears && years > 0
	hasRate = hasRate && rate >= 0

	p := SavingsParams{MonthlyAmount: monthly, Years: years, AnnualInterestRate: rate}
	if !hasMonthly {
		p.MonthlyAmount = d.MonthlyAmount
		p.Defaulted = append(p.Defaulted, "monthlyAmount")
	}
	if !hasYears {
		p.Years = d.Years
		p.Defaulted = append(p.Defaulted, "years")
	}
	if !hasRate {
		p.AnnualInterestRate = d.AnnualInterestRate
		p.Defaulted = append(p.Defaulted, "annualInterestRate")
	}
	return p
}

// BMIParams are the inputs of computeBMI.
type BMIParams struct {
	HeightCm  float64
	WeightKg  float64
	Defaulted []string
}

// CoerceBMI extracts height and weight from in.
//
// Description:
//
//	Record keys: heightCm or height, weightKg or weight. A record height of
//	3 or less is taken as meters. Free text accepts "180 cm", "1.8 m",
//	"1,80 m" and "75 kg". Non-positive values count as missing.
func CoerceBMI(in datatypes.InputValue, d config.BMIDefaults) BMIParams {
	var (
		height, weight       float64
		hasHeight, hasWeight bool
	)

	if rec, ok := in.AsRecord(); ok {
		height, hasHeight = firstNumber(rec, "heightCm", "height")
		if hasHeight && height > 0 && height <= 3 {
			height = metersToCm(height)
		}
		weight, hasWeight = firstNumber(rec, "weightKg", "weight")
	} else {
		text := in.Render()
		height, hasHeight = matchNumber(heightCmPattern, text)
		if !hasHeight {
			if m, ok := matchNumber(heightMPattern, text); ok {
				height, hasHeight = metersToCm(m), true
			}
		}
		weight, hasWeight = matchNumber(weightKgPattern, text)
	}

	hasHeight = hasHeight && height > 0
	hasWeight = hasWeight && weight > 0

	p := BMIParams{HeightCm: height, WeightKg: weight}
	if !hasHeight {
		p.HeightCm = d.HeightCm
		p.Defaulted = append(p.Defaulted, "heightCm")
	}
	if !hasWeight {
		p.WeightKg = d.WeightKg
		p.Defaulted = append(p.Defaulted, "weightKg")
	}
	return p
}

// CoerceTwoTexts splits in into the two texts to compare.
//
// Description:
//
//	Record input uses text1 and text2. A record with neither, such as an
//	earlier tool's output, is compared field against field: a single field
//	is split as free text, otherwise the first half of its "key: value"
//	lines (in key order) is compared with the second half. Free text is
//	split on the first two quoted segments, then on the first separator
//	found (vs, versus, and, with, semicolon, comma), then at the middle
//	rune.
//
// Outputs:
//   - string, string: The two texts.
//   - error: Non-nil when the input holds no text.
func CoerceTwoTexts(in datatypes.InputValue) (string, string, error) {
	var text string
	if rec, ok := in.AsRecord(); ok {
		_, has1 := rec["text1"]
		_, has2 := rec["text2"]
		if has1 || has2 {
			t1 := fieldText(rec, "text1")
			t2 := fieldText(rec, "text2")
			if t1 == "" && t2 == "" {
				return "", "", fmt.Errorf("record has empty text1 and text2")
			}
			return t1, t2, nil
		}
		lines := recordLines(rec)
		switch len(lines) {
		case 0:
			return "", "", fmt.Errorf("record holds no text to compare")
		case 1:
			text = strings.TrimSpace(valueText(rec[onlyKey(rec)]))
		default:
			half := (len(lines) + 1) / 2
			return strings.Join(lines[:half], "\n"), strings.Join(lines[half:], "\n"), nil
		}
	} else {
		text = strings.TrimSpace(in.Render())
	}
	if text == "" {
		return "", "", fmt.Errorf("no text to compare")
	}

	if matches := quotedPattern.FindAllStringSubmatch(text, 2); len(matches) == 2 {
		return quotedBody(matches[0]), quotedBody(matches[1]), nil
	}

	for _, sep := range wordSeparators {
		if loc := sep.FindStringIndex(text); loc != nil {
			if t1, t2, ok := splitAt(text, loc[0], loc[1]); ok {
				return t1, t2, nil
			}
		}
	}
	for _, sep := range punctSeparators {
		if i := strings.Index(text, sep); i >= 0 {
			if t1, t2, ok := splitAt(text, i, i+len(sep)); ok {
				return t1, t2, nil
			}
		}
	}

	runes := []rune(text)
	mid := len(runes) / 2
	return strings.TrimSpace(string(runes[:mid])), strings.TrimSpace(string(runes[mid:])), nil
}

// SummarizeParams are the inputs of summarize.
type SummarizeParams struct {
	Text      string
	MaxWords  int
	Defaulted []string
}

// CoerceSummarize extracts the text and word limit from in. A record
// without a text field is summarized as a whole.
func CoerceSummarize(in datatypes.InputValue, d config.SummaryDefaults) (SummarizeParams, error) {
	p := SummarizeParams{}
	hasMax := false

	if rec, ok := in.AsRecord(); ok {
		p.Text = fieldText(rec, "text")
		if n, ok := firstNumber(rec, "maxWords", "max_words"); ok && n > 0 {
			p.MaxWords, hasMax = int(n), true
		}
		if _, has := rec["text"]; !has && len(rec) > 0 {
			p.Text = strings.TrimSpace(in.Render())
		}
	} else {
		p.Text = strings.TrimSpace(in.Render())
		if m := maxWordsPattern.FindStringSubmatch(p.Text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				p.MaxWords, hasMax = n, true
			}
		}
	}

	if p.Text == "" {
		return p, fmt.Errorf("no text to summarize")
	}
	if !hasMax {
		p.MaxWords = d.MaxWords
		p.Defaulted = append(p.Defaulted, "maxWords")
	}
	return p, nil
}

// CoerceMetrics renders in as the metrics text handed to the interpreter.
// Records become one "key: value" line per field in key order.
func CoerceMetrics(in datatypes.InputValue) (string, error) {
	var text string
	if rec, ok := in.AsRecord(); ok {
		if lines := recordLines(rec); len(lines) > 0 {
			text = strings.Join(lines, "\n") + "\n"
		}
	} else {
		text = in.Render()
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no metrics to interpret")
	}
	return text, nil
}

// CoerceDirect returns the question and optional context for directAnswer.
// fallbackQuery is used when the input carries no question. A record with
// neither a question nor a context field becomes the context.
func CoerceDirect(in datatypes.InputValue, fallbackQuery string) (query, extra string) {
	if rec, ok := in.AsRecord(); ok {
		query = fieldText(rec, "query")
		if query == "" {
			query = fieldText(rec, "question")
		}
		if v, ok := rec["context"]; ok {
			extra = valueText(v)
		} else if query == "" && len(rec) > 0 {
			extra = in.Render()
		}
	} else {
		query = strings.TrimSpace(in.Render())
	}
	if query == "" {
		query = fallbackQuery
	}
	return query, extra
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// metersToCm converts and rounds to 1/100 cm to drop float noise.
func metersToCm(m float64) float64 {
	return math.Round(m*10000) / 100
}

func firstNumber(rec map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// parseNumber accepts "1200", "1,200", "5.5" and "5,5".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "%€$ ")
	s = strings.TrimLeft(s, "€$ ")
	if s == "" {
		return 0, false
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func matchNumber(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseNumber(m[1])
}

func fieldText(rec map[string]any, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(valueText(v))
}

// valueText renders a record field as text. Nested values become JSON.
func valueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool, int, int64, json.Number:
		return fmt.Sprint(x)
	default:
		return renderNested(x)
	}
}

func renderNested(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// recordLines renders each field as "key: value", in key order.
func recordLines(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, valueText(rec[k])))
	}
	return lines
}

func onlyKey(rec map[string]any) string {
	for k := range rec {
		return k
	}
	return ""
}

func quotedBody(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

func splitAt(text string, start, end int) (string, string, bool) {
	left := strings.TrimSpace(text[:start])
	right := strings.TrimSpace(strings.TrimLeft(text[end:], ".: "))
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// joinDefaults renders Defaulted lists for tool outputs.
func joinDefaults(params []string) string {
	return strings.Join(params, ",")
}
