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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

var (
	testSavingsDefaults = config.SavingsDefaults{MonthlyAmount: 100, Years: 10, AnnualInterestRate: 0}
	testBMIDefaults     = config.BMIDefaults{HeightCm: 170, WeightKg: 70}
	testSummaryDefaults = config.SummaryDefaults{MaxWords: 200}
)

func TestCoerceSavings(t *testing.T) {
	tests := []struct {
		name          string
		in            datatypes.InputValue
		wantMonthly   float64
		wantYears     float64
		wantRate      float64
		wantDefaulted []string
	}{
		{
			name:        "record with canonical keys and numeric strings",
			in:          datatypes.Record(map[string]any{"monthlyAmount": "200", "years": 5.0, "annualInterestRate": "3.5"}),
			wantMonthly: 200, wantYears: 5, wantRate: 3.5,
		},
		{
			name:        "record with alias keys",
			in:          datatypes.Record(map[string]any{"monthly": 50.0, "years": "2", "interest": 1.0}),
			wantMonthly: 50, wantYears: 2, wantRate: 1,
		},
		{
			name:        "free text with suffix currency",
			in:          datatypes.Text("Save 150 € per month for 20 years at 4% interest"),
			wantMonthly: 150, wantYears: 20, wantRate: 4,
		},
		{
			name:        "thousands separator",
			in:          datatypes.Text("1,200 euros for 3 years at 2 percent"),
			wantMonthly: 1200, wantYears: 3, wantRate: 2,
		},
		{
			name:          "leading currency without rate",
			in:            datatypes.Text("$250 monthly over 10 yrs"),
			wantMonthly:   250, wantYears: 10, wantRate: 0,
			wantDefaulted: []string{"annualInterestRate"},
		},
		{
			name:        "decimal comma in rate and term",
			in:          datatypes.Text("Save 100 € per month for 10 years at 2,5% interest"),
			wantMonthly: 100, wantYears: 10, wantRate: 2.5,
		},
		{
			name:        "decimal comma in years",
			in:          datatypes.Text("200 euros a month for 7,5 years at 3 percent"),
			wantMonthly: 200, wantYears: 7.5, wantRate: 3,
		},
		{
			name:          "non-positive record values fall back",
			in:            datatypes.Record(map[string]any{"monthlyAmount": 0.0, "years": "-2", "annualInterestRate": -1.0}),
			wantMonthly:   100, wantYears: 10, wantRate: 0,
			wantDefaulted: []string{"monthlyAmount", "years", "annualInterestRate"},
		},
		{
			name:          "nothing extractable",
			in:            datatypes.Text("how much will I save"),
			wantMonthly:   100, wantYears: 10, wantRate: 0,
			wantDefaulted: []string{"monthlyAmount", "years", "annualInterestRate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CoerceSavings(tt.in, testSavingsDefaults)
			assert.InDelta(t, tt.wantMonthly, p.MonthlyAmount, 1e-9)
			assert.InDelta(t, tt.wantYears, p.Years, 1e-9)
			assert.InDelta(t, tt.wantRate, p.AnnualInterestRate, 1e-9)
			assert.Equal(t, tt.wantDefaulted, p.Defaulted)
		})
	}
}

func TestCoerceBMI(t *testing.T) {
	tests := []struct {
		name          string
		in            datatypes.InputValue
		wantHeight    float64
		wantWeight    float64
		wantDefaulted []string
	}{
		{"centimeters", datatypes.Text("I am 180 cm tall and weigh 75 kg"), 180, 75, nil},
		{"meters", datatypes.Text("1.75 m and 70kg"), 175, 70, nil},
		{"record", datatypes.Record(map[string]any{"heightCm": 165.0, "weightKg": "60"}), 165, 60, nil},
		{"record in meters", datatypes.Record(map[string]any{"height": 1.8, "weight": "80"}), 180, 80, nil},
		{"meters with decimal comma", datatypes.Text("height 1,80 m, weight 75 kg"), 180, 75, nil},
		{"weight with decimal comma", datatypes.Text("182 cm and 80,5 kg"), 182, 80.5, nil},
		{"zero height falls back", datatypes.Text("height 0 m, weight 75 kg"), 170, 75, []string{"heightCm"}},
		{"non-positive record falls back", datatypes.Record(map[string]any{"heightCm": 0.0, "weightKg": -5.0}), 170, 70, []string{"heightCm", "weightKg"}},
		{"weight only", datatypes.Text("I weigh 90 kg"), 170, 90, []string{"heightCm"}},
		{"nothing", datatypes.Text("what is my bmi"), 170, 70, []string{"heightCm", "weightKg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CoerceBMI(tt.in, testBMIDefaults)
			assert.InDelta(t, tt.wantHeight, p.HeightCm, 1e-9)
			assert.InDelta(t, tt.wantWeight, p.WeightKg, 1e-9)
			assert.Equal(t, tt.wantDefaulted, p.Defaulted)
		})
	}
}

func TestCoerceTwoTexts(t *testing.T) {
	tests := []struct {
		name   string
		in     datatypes.InputValue
		want1  string
		want2  string
		hasErr bool
	}{
		{"record", datatypes.Record(map[string]any{"text1": "a", "text2": "b"}), "a", "b", false},
		{"quoted", datatypes.Text(`Compare "cats are great" and "dogs are loyal"`), "cats are great", "dogs are loyal", false},
		{"backticks", datatypes.Text("`one` `two`"), "one", "two", false},
		{"vs", datatypes.Text("Python vs. Go"), "Python", "Go", false},
		{"versus", datatypes.Text("tea versus coffee"), "tea", "coffee", false},
		{"and", datatypes.Text("apples and oranges"), "apples", "oranges", false},
		{"with", datatypes.Text("rain with snow"), "rain", "snow", false},
		{"semicolon", datatypes.Text("first part; second part"), "first part", "second part", false},
		{"comma", datatypes.Text("left side, right side"), "left side", "right side", false},
		{"and inside a word is not a separator", datatypes.Text("sandy; beach"), "sandy", "beach", false},
		{"middle split", datatypes.Text("abcdef"), "abc", "def", false},
		{"empty", datatypes.Text("  "), "", "", true},
		{"record without text fields", datatypes.Record(map[string]any{"bmi": "24.69", "category": "normal weight"}), "bmi: 24.69", "category: normal weight", false},
		{"record fields split in halves", datatypes.Record(map[string]any{"a": "1", "b": "2", "c": "3"}), "a: 1\nb: 2", "c: 3", false},
		{"single field record is free text", datatypes.Record(map[string]any{"details": "tea versus coffee"}), "tea", "coffee", false},
		{"empty record", datatypes.Record(map[string]any{}), "", "", true},
		{"empty text fields", datatypes.Record(map[string]any{"text1": "", "text2": " "}), "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1, t2, err := CoerceTwoTexts(tt.in)
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want1, t1)
			assert.Equal(t, tt.want2, t2)
		})
	}
}

func TestCoerceSummarize(t *testing.T) {
	p, err := CoerceSummarize(datatypes.Text("Summarize this in 50 words: long text"), testSummaryDefaults)
	require.NoError(t, err)
	assert.Equal(t, 50, p.MaxWords)
	assert.Empty(t, p.Defaulted)

	p, err = CoerceSummarize(datatypes.Record(map[string]any{"text": "body", "maxWords": 30.0}), testSummaryDefaults)
	require.NoError(t, err)
	assert.Equal(t, "body", p.Text)
	assert.Equal(t, 30, p.MaxWords)

	p, err = CoerceSummarize(datatypes.Text("just text"), testSummaryDefaults)
	require.NoError(t, err)
	assert.Equal(t, 200, p.MaxWords)
	assert.Equal(t, []string{"maxWords"}, p.Defaulted)

	p, err = CoerceSummarize(datatypes.Record(map[string]any{"amount": "1300.00", "years": "10"}), testSummaryDefaults)
	require.NoError(t, err, "a record without a text field is summarized whole")
	assert.Equal(t, `{"amount":"1300.00","years":"10"}`, p.Text)
	assert.Equal(t, []string{"maxWords"}, p.Defaulted)

	_, err = CoerceSummarize(datatypes.Record(map[string]any{"text": ""}), testSummaryDefaults)
	assert.Error(t, err)

	_, err = CoerceSummarize(datatypes.Text(""), testSummaryDefaults)
	assert.Error(t, err)
}

func TestCoerceMetrics(t *testing.T) {
	text, err := CoerceMetrics(datatypes.Record(map[string]any{"systolic": 120.0, "bmi": "23.1"}))
	require.NoError(t, err)
	assert.Equal(t, "bmi: 23.1\nsystolic: 120\n", text)

	text, err = CoerceMetrics(datatypes.Text("BMI 31"))
	require.NoError(t, err)
	assert.Equal(t, "BMI 31", text)

	_, err = CoerceMetrics(datatypes.None())
	assert.Error(t, err)
}

func TestCoerceDirect(t *testing.T) {
	q, extra := CoerceDirect(datatypes.Record(map[string]any{"query": "why?", "context": "because"}), "orig")
	assert.Equal(t, "why?", q)
	assert.Equal(t, "because", extra)

	q, extra = CoerceDirect(datatypes.Text("plain"), "orig")
	assert.Equal(t, "plain", q)
	assert.Empty(t, extra)

	q, _ = CoerceDirect(datatypes.Text(""), "orig")
	assert.Equal(t, "orig", q)

	q, extra = CoerceDirect(datatypes.Record(map[string]any{"bmi": "22.5"}), "orig")
	assert.Equal(t, "orig", q)
	assert.Equal(t, `{"bmi":"22.5"}`, extra)
}
