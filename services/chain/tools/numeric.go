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
	"fmt"
	"math"
	"strconv"

	"github.com/AleutianAI/AleutianChain/services/chain/config"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

// SavingsResult is the outcome of a savings projection.
type SavingsResult struct {
	Amount            float64
	TotalContribution float64
	InterestEarned    float64
}

// ComputeSavings projects a monthly savings plan.
//
// Description:
//
//	Without interest the amount is monthly × 12 × years. With interest each
//	month adds the deposit and then compounds at rate/100/12, over
//	round(years × 12) months.
//
// Outputs:
//   - error: Non-nil when monthly or years is not positive.
func ComputeSavings(monthly, years, annualRate float64) (SavingsResult, error) {
	if monthly <= 0 {
		return SavingsResult{}, fmt.Errorf("monthly amount must be positive, got %g", monthly)
	}
	if years <= 0 {
		return SavingsResult{}, fmt.Errorf("years must be positive, got %g", years)
	}

	contribution := monthly * 12 * years
	if annualRate == 0 {
		return SavingsResult{Amount: contribution, TotalContribution: contribution}, nil
	}

	monthlyRate := annualRate / 100 / 12
	months := int(math.Round(years * 12))
	total := 0.0
	for i := 0; i < months; i++ {
		total += monthly
		total *= 1 + monthlyRate
	}
	return SavingsResult{
		Amount:            total,
		TotalContribution: contribution,
		InterestEarned:    total - contribution,
	}, nil
}

// BMICategory maps a BMI value to its category.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal weight"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// ComputeBMI returns weight / (height in meters)².
func ComputeBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 {
		return 0, fmt.Errorf("height must be positive, got %g", heightCm)
	}
	if weightKg <= 0 {
		return 0, fmt.Errorf("weight must be positive, got %g", weightKg)
	}
	m := heightCm / 100
	return weightKg / (m * m), nil
}

// savingsTool implements computeSavings.
type savingsTool struct {
	cfg config.Source
}

func (t *savingsTool) Invoke(_ context.Context, call Call) (datatypes.InputValue, error) {
	p := CoerceSavings(call.Input, t.cfg.Get().Tools.Savings)
	recordDefaults("computeSavings", p.Defaulted)

	res, err := ComputeSavings(p.MonthlyAmount, p.Years, p.AnnualInterestRate)
	if err != nil {
		return datatypes.None(), err
	}

	yearsText := strconv.FormatFloat(p.Years, 'f', -1, 64)
	out := map[string]any{
		"amount":             fmt.Sprintf("%.2f", res.Amount),
		"totalContribution":  fmt.Sprintf("%.2f", res.TotalContribution),
		"interestEarned":     fmt.Sprintf("%.2f", res.InterestEarned),
		"years":              yearsText,
		"monthlyAmount":      fmt.Sprintf("%.2f", p.MonthlyAmount),
		"annualInterestRate": fmt.Sprintf("%.2f", p.AnnualInterestRate),
		"details": fmt.Sprintf(
			"Saving %.2f per month for %s years at %.2f%% annual interest gives %.2f, of which %.2f is interest.",
			p.MonthlyAmount, yearsText, p.AnnualInterestRate, res.Amount, res.InterestEarned),
	}
	if len(p.Defaulted) > 0 {
		out["defaultsApplied"] = joinDefaults(p.Defaulted)
	}
	return datatypes.Record(out), nil
}

// bmiTool implements computeBMI.
type bmiTool struct {
	cfg config.Source
}

func (t *bmiTool) Invoke(_ context.Context, call Call) (datatypes.InputValue, error) {
	p := CoerceBMI(call.Input, t.cfg.Get().Tools.BMI)
	recordDefaults("computeBMI", p.Defaulted)

	bmi, err := ComputeBMI(p.HeightCm, p.WeightKg)
	if err != nil {
		return datatypes.None(), err
	}

	out := map[string]any{
		"bmi":      fmt.Sprintf("%.2f", bmi),
		"category": BMICategory(bmi),
		"heightCm": strconv.FormatFloat(p.HeightCm, 'f', -1, 64),
		"weightKg": strconv.FormatFloat(p.WeightKg, 'f', -1, 64),
	}
	if len(p.Defaulted) > 0 {
		out["defaultsApplied"] = joinDefaults(p.Defaulted)
	}
	return datatypes.Record(out), nil
}
