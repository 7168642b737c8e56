// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate scores papers for topical relevance. The primary
// path asks the LLM for a bare number; any transport, timeout, or
// parsing failure falls back to a deterministic lexical scorer, so
// Validate never fails and every paper leaves with populated scores.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/litscout/internal/gemini"
	"github.com/pdiddy/litscout/internal/keywords"
	"github.com/pdiddy/litscout/pkg/types"
)

// numberPattern finds the first number in a model reply that is not a
// clean float.
var numberPattern = regexp.MustCompile(`([0-9]*\.?[0-9]+)`)

// promptTemplate instructs the model to answer with nothing but a score.
const promptTemplate = `Rate the relevance of this paper to the research query on a scale from 0.0 to 1.0.

Query: %s

Title: %s
Abstract: %s

Respond with only a number between 0.0 and 1.0.`

// Validator scores papers against a query.
type Validator struct {
	LLM    gemini.TextGenerator
	Config types.ValidationConfig
}

// New builds a Validator. A nil LLM sends every paper down the
// fallback path, which keeps offline runs working.
func New(llm gemini.TextGenerator, cfg types.ValidationConfig) *Validator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.PacingDelay == 0 {
		cfg.PacingDelay = 7 * time.Second
	}
	return &Validator{LLM: llm, Config: cfg}
}

// Validate scores one paper. The call blocks for the pacing delay
// before contacting the model; callers wanting parallelism use Batch.
func (v *Validator) Validate(ctx context.Context, paper types.Paper, query string) types.RelevanceScore {
	if v.LLM == nil {
		return FallbackScore(paper, query)
	}

	select {
	case <-ctx.Done():
		return FallbackScore(paper, query)
	case <-time.After(v.Config.PacingDelay):
	}

	prompt := fmt.Sprintf(promptTemplate, query, paper.Title, paper.Abstract)
	reply, err := v.LLM.GenerateText(ctx, prompt)
	if err != nil {
		return FallbackScore(paper, query)
	}

	score, ok := parseScore(reply)
	if !ok {
		return FallbackScore(paper, query)
	}

	rs := types.RelevanceScore{
		Relevance:  score,
		Confidence: 0.9,
		Reasoning:  fmt.Sprintf("model scored %.2f for query %q", score, query),
		KeyMatches: matchedQueryTerms(paper, query, 5),
	}
	if score <= 0.5 {
		rs.Concerns = []string{"model rated relevance at or below threshold"}
	}
	rs.Normalize()
	return rs
}

// Batch validates papers with bounded concurrency and returns them in
// input order with scores applied. Concurrency is a semaphore of
// Config.Concurrency workers; each worker waits the pacing delay before
// its call, which keeps the aggregate under ~10 requests/minute at the
// default settings (3 workers, 7 s spacing).
func (v *Validator) Batch(ctx context.Context, papers []types.Paper, query string) []types.Paper {
	out := make([]types.Paper, len(papers))
	copy(out, papers)

	sem := make(chan struct{}, v.Config.Concurrency)
	var wg sync.WaitGroup

	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rs := v.Validate(ctx, out[i], query)
			rs.Apply(&out[i])
		}(i)
	}
	wg.Wait()
	return out
}

// parseScore extracts a relevance score from model output: a direct
// float parse of the trimmed reply, else the first embedded number,
// clamped to [0, 1]. Returns false when no number is present.
func parseScore(reply string) (float64, bool) {
	trimmed := strings.TrimSpace(reply)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return types.Clamp01(f), true
	}
	if m := numberPattern.FindStringSubmatch(trimmed); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return types.Clamp01(f), true
		}
	}
	return 0, false
}

// MLContextTerms is the vocabulary behind the fallback scorer's
// machine-learning boost. Deployments outside NLP/DL can replace it.
var MLContextTerms = []string{
	"transformer", "attention", "bert", "gpt", "neural", "network",
	"deep", "learning", "machine", "artificial", "intelligence", "nlp",
	"language", "model", "embedding", "encoder", "decoder",
}

// FallbackScore computes a deterministic relevance score from lexical
// overlap between the query and the paper's title, abstract prefix,
// and keywords. It is a pure function of its inputs.
func FallbackScore(paper types.Paper, query string) types.RelevanceScore {
	queryTokens := keywords.TokenSet(query)
	titleTokens := keywords.TokenSet(paper.Title)
	abstractTokens := keywords.TokenSet(firstWords(paper.Abstract, 100))
	keywordTokens := keywords.TokenSet(strings.Join(paper.Keywords, " "))

	base := 0.5*overlap(queryTokens, titleTokens) +
		0.3*overlap(queryTokens, abstractTokens) +
		0.2*overlap(queryTokens, keywordTokens)

	searchable := strings.ToLower(paper.Title + " " + paper.Abstract + " " + strings.Join(paper.Keywords, " "))
	mlHits := 0
	for _, term := range MLContextTerms {
		if strings.Contains(searchable, term) {
			mlHits++
		}
	}
	mlBoost := 0.1 * float64(mlHits)
	if mlBoost > 0.3 {
		mlBoost = 0.3
	}

	citationBoost := float64(paper.CitationCount) / 1000
	if citationBoost > 0.1 {
		citationBoost = 0.1
	}

	final := types.Clamp01(base + mlBoost + citationBoost)
	// Rescue weak-but-plausible matches so they stay in contention.
	if final > 0.1 && final < 0.4 {
		final = 0.4
	}

	matches := matchedQueryTerms(paper, query, 5)
	confidence := 0.4
	if len(matches) > 0 {
		confidence = 0.7
	}

	rs := types.RelevanceScore{
		Relevance:  final,
		Confidence: confidence,
		Reasoning: fmt.Sprintf(
			"fallback score: base=%.2f ml_boost=%.2f citation_boost=%.2f final=%.2f",
			base, mlBoost, citationBoost, final),
		KeyMatches: matches,
	}
	if final <= 0.5 {
		rs.Concerns = []string{"low lexical overlap with query"}
	}
	rs.Normalize()
	return rs
}

// overlap is |A∩B| / max(|A|, 1) for the query set A.
func overlap(query, other map[string]bool) float64 {
	inter := 0
	for tok := range query {
		if other[tok] {
			inter++
		}
	}
	denom := len(query)
	if denom < 1 {
		denom = 1
	}
	return float64(inter) / float64(denom)
}

// matchedQueryTerms lists query tokens found in the title or keywords,
// capped at max, in query order.
func matchedQueryTerms(paper types.Paper, query string, max int) []string {
	titleTokens := keywords.TokenSet(paper.Title)
	keywordTokens := keywords.TokenSet(strings.Join(paper.Keywords, " "))

	seen := make(map[string]bool)
	var matches []string
	for _, tok := range keywords.Tokenize(query) {
		if seen[tok] || (!titleTokens[tok] && !keywordTokens[tok]) {
			continue
		}
		seen[tok] = true
		matches = append(matches, tok)
		if len(matches) >= max {
			break
		}
	}
	return matches
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
