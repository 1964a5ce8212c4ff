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
	"math"
	"sort"
	"strings"
	"unicode"
)

// =============================================================================
// BM25 Index
// =============================================================================

const (
	// bm25K1 controls term frequency saturation.
	bm25K1 = 1.5

	// bm25B controls document length normalization.
	bm25B = 0.75
)

// subscriptDigits folds "co₂" onto "co2".
var subscriptDigits = strings.NewReplacer(
	"₀", "0", "₁", "1", "₂", "2", "₃", "3", "₄", "4",
	"₅", "5", "₆", "6", "₇", "7", "₈", "8", "₉", "9",
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "for": true, "to": true, "is": true, "are": true,
	"was": true, "be": true, "by": true, "with": true, "what": true, "which": true,
	"how": true, "does": true, "do": true, "about": true, "from": true, "at": true,
	"it": true, "its": true, "this": true, "that": true, "me": true, "tell": true,
	"search": true, "find": true, "there": true, "many": true, "much": true,
}

type bm25Doc struct {
	id  int
	tf  map[string]int
	len int
}

// BM25Index is an inverted index over a fixed set of documents.
//
// Description:
//
//	Okapi BM25 with Lucene-style IDF, log((N+1)/(df+1)) + 1. Scores are
//	normalized to [0, 1] by dividing by the best score of the query.
//
// Thread Safety: Immutable after BuildBM25Index; safe for concurrent use.
type BM25Index struct {
	docs   []bm25Doc
	idf    map[string]float64
	avgLen float64
}

// Hit is one scored document.
type Hit struct {
	ID    int
	Score float64
}

// BuildBM25Index indexes texts. A document's ID is its position in texts.
func BuildBM25Index(texts []string) *BM25Index {
	idx := &BM25Index{idf: make(map[string]float64)}
	if len(texts) == 0 {
		return idx
	}

	df := make(map[string]int)
	totalLen := 0
	for i, text := range texts {
		tf := make(map[string]int)
		terms := Tokenize(text)
		for _, term := range terms {
			tf[term]++
		}
		idx.docs = append(idx.docs, bm25Doc{id: i, tf: tf, len: len(terms)})
		totalLen += len(terms)
		for term := range tf {
			df[term]++
		}
	}

	n := len(idx.docs)
	idx.avgLen = float64(totalLen) / float64(n)
	for term, docFreq := range df {
		idx.idf[term] = math.Log(float64(n+1)/float64(docFreq+1)) + 1.0
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	return len(idx.docs)
}

// Search scores every document against query and returns the hits with a
// non-zero score, best first. Ties keep index order.
func (idx *BM25Index) Search(query string) []Hit {
	if len(idx.docs) == 0 || idx.avgLen == 0 {
		return nil
	}
	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	var (
		hits     []Hit
		maxScore float64
	)
	for _, doc := range idx.docs {
		s := idx.score(terms, doc)
		if s <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: doc.id, Score: s})
		if s > maxScore {
			maxScore = s
		}
	}
	for i := range hits {
		hits[i].Score /= maxScore
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func (idx *BM25Index) score(terms []string, doc bm25Doc) float64 {
	dl := float64(doc.len)
	var score float64
	for _, term := range terms {
		tf, ok := doc.tf[term]
		if !ok {
			continue
		}
		tfFloat := float64(tf)
		numerator := tfFloat * (bm25K1 + 1)
		denominator := tfFloat + bm25K1*(1.0-bm25B+bm25B*dl/idx.avgLen)
		score += idx.idf[term] * (numerator / denominator)
	}
	return score
}

// Tokenize lowercases text, folds subscript digits, splits on anything
// that is not a letter or digit and drops stop words.
func Tokenize(text string) []string {
	text = subscriptDigits.Replace(strings.ToLower(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
