// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	defaultTopK     = 3
	defaultMinScore = 0.05

	simulationURL = "https://www.example.com/search"
)

// Document is one entry of the simulated corpus. Keywords are indexed
// alongside the title and snippet but never returned.
type Document struct {
	Title    string
	URL      string
	Snippet  string
	Keywords []string
}

// BuiltinCorpus returns the documents served by the simulated backend.
func BuiltinCorpus() []Document {
	return []Document{
		{
			Title:    "Federal Government - Climate Protection Act",
			URL:      "https://www.bundesregierung.de/breg-de/themen/klimaschutz/klimaschutzgesetz-2021-1913672",
			Snippet:  "The amended Climate Protection Act provides for reducing greenhouse gas emissions by 65% by 2030 compared to 1990. Germany aims to be climate neutral by 2045.",
			Keywords: []string{"co2", "legislation", "law", "climate", "emissions", "germany", "policy"},
		},
		{
			Title:    "Federal Environment Agency - CO₂ Pricing in Germany",
			URL:      "https://www.umweltbundesamt.de/themen/klima-energie/klimaschutz-energiepolitik-in-deutschland/co2-bepreisung-in-deutschland",
			Snippet:  "Since 2021, CO₂ pricing has been in effect in Germany for the heating and transportation sectors. The entry price was 25 euros per ton of CO₂.",
			Keywords: []string{"co2", "legislation", "price", "tax", "germany", "carbon"},
		},
		{
			Title:    "BMWK - Questions and Answers on CO₂ Pricing",
			URL:      "https://www.bmwk.de/Redaktion/DE/FAQ/CO2-Bepreisung/faq-co2-bepreisung.html",
			Snippet:  "CO₂ pricing is an important instrument for achieving climate targets. It creates incentives for climate-friendly technologies and behaviors.",
			Keywords: []string{"co2", "legislation", "carbon", "faq", "climate"},
		},
		{
			Title:    "Federal Center for Nutrition - Caloric Content of Pizza",
			URL:      "https://www.bzfe.de/ernaehrung/ernaehrungswissen/kalorien-und-naehrwerte/",
			Snippet:  "An average Pizza Margherita (approx. 330g) contains about 700-800 calories. The caloric content can vary greatly depending on toppings.",
			Keywords: []string{"pizza", "calories", "nutrition", "food"},
		},
		{
			Title:    "Nutrition Database - Nutritional Values of Various Pizzas",
			URL:      "https://naehrwertdatenbank.de",
			Snippet:  "Pizza Salami (350g): approx. 900 calories, Pizza with vegetables (340g): approx. 750 calories, Pizza tuna (360g): approx. 830 calories.",
			Keywords: []string{"pizza", "calories", "nutrition", "food"},
		},
		{
			Title:    "World Health Organization - Body Mass Index",
			URL:      "https://www.who.int/data/gho/data/themes/topics/topic-details/GHO/body-mass-index",
			Snippet:  "BMI is weight in kilograms divided by the square of height in meters. Adults with a BMI of 25 or more are classified as overweight and 30 or more as obese.",
			Keywords: []string{"bmi", "weight", "height", "obesity", "health"},
		},
		{
			Title:    "Investor.gov - Compound Interest",
			URL:      "https://www.investor.gov/financial-tools-calculators/calculators/compound-interest-calculator",
			Snippet:  "Compound interest is interest earned on both the original deposit and on the interest already earned. Regular monthly contributions grow faster the earlier they start.",
			Keywords: []string{"savings", "interest", "compound", "investment", "deposit"},
		},
		{
			Title:    "American Heart Association - Blood Pressure Readings",
			URL:      "https://www.heart.org/en/health-topics/high-blood-pressure/understanding-blood-pressure-readings",
			Snippet:  "A normal blood pressure reading is below 120/80 mm Hg. Readings of 130/80 or higher are classified as high blood pressure.",
			Keywords: []string{"blood", "pressure", "heart", "health", "metrics"},
		},
	}
}

// SimulatedBackend serves a fixed corpus ranked with BM25.
//
// Description:
//
//	The query is scored against the title, snippet and keywords of each
//	document. Up to TopK documents scoring at least MinScore are returned.
//	When nothing qualifies a single generic simulation result is returned
//	so callers always have something to show.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type SimulatedBackend struct {
	docs     []Document
	index    *BM25Index
	topK     int
	minScore float64
	logger   *slog.Logger
}

// SimulatedOption configures a SimulatedBackend.
type SimulatedOption func(*SimulatedBackend)

// WithTopK sets the maximum number of results.
func WithTopK(k int) SimulatedOption {
	return func(b *SimulatedBackend) {
		if k > 0 {
			b.topK = k
		}
	}
}

// WithMinScore sets the normalized score threshold.
func WithMinScore(s float64) SimulatedOption {
	return func(b *SimulatedBackend) {
		if s >= 0 {
			b.minScore = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SimulatedOption {
	return func(b *SimulatedBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewSimulatedBackend indexes docs. A nil docs uses BuiltinCorpus.
func NewSimulatedBackend(docs []Document, opts ...SimulatedOption) *SimulatedBackend {
	if docs == nil {
		docs = BuiltinCorpus()
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Title + " " + d.Snippet + " " + strings.Join(d.Keywords, " ")
	}

	b := &SimulatedBackend{
		docs:     docs,
		index:    BuildBM25Index(texts),
		topK:     defaultTopK,
		minScore: defaultMinScore,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Search implements Backend. It never fails.
func (b *SimulatedBackend) Search(_ context.Context, query string) ([]Result, error) {
	hits := b.index.Search(query)

	results := make([]Result, 0, b.topK)
	for _, h := range hits {
		if len(results) == b.topK {
			break
		}
		if h.Score < b.minScore {
			continue
		}
		d := b.docs[h.ID]
		results = append(results, Result{Title: d.Title, URL: d.URL, Snippet: d.Snippet, Score: h.Score})
	}

	b.logger.Debug("simulated search",
		slog.Int("query_len", len(query)),
		slog.Int("hits", len(hits)),
		slog.Int("returned", len(results)),
	)

	if len(results) == 0 {
		return []Result{genericResult(query)}, nil
	}
	return results, nil
}

func genericResult(query string) Result {
	return Result{
		Title: fmt.Sprintf("Search results for \"%s\"", query),
		URL:   simulationURL,
		Snippet: fmt.Sprintf(
			"This is a simulation of a web search. In a real application, real search results for \"%s\" would appear here.",
			query),
	}
}
