// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package augment widens a search query between quality-assurance
// rounds. The LLM path asks the model to rewrite the query using terms
// from the papers already judged relevant; when the model is
// unavailable or returns something unusable, a frequency-based
// fallback appends the most common terms from those papers instead.
package augment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/litscout/internal/gemini"
	"github.com/pdiddy/litscout/internal/keywords"
	"github.com/pdiddy/litscout/pkg/types"
)

const (
	// maxReplyTokens rejects model replies that ramble past a usable
	// search query.
	maxReplyTokens = 20

	// abstractSample is how much of each abstract the fallback mines.
	abstractSample = 200

	// promptAbstractSample is how much of each abstract the model sees.
	promptAbstractSample = 300

	// fallbackTermCount caps how many discovered terms the fallback
	// appends to the original query.
	fallbackTermCount = 3
)

const promptTemplate = `The search query "%s" found these relevant papers:

%s
Write a refined search query (at most 15 words) that would find more papers like these. Drop generic words such as "paper", "study", "research", and "analysis". Respond with only the query text.`

// Augmenter produces refined queries. A nil LLM always takes the
// fallback path.
type Augmenter struct {
	LLM gemini.TextGenerator
}

// New builds an Augmenter around the given text generator.
func New(llm gemini.TextGenerator) *Augmenter {
	return &Augmenter{LLM: llm}
}

// Refine returns a widened query derived from the original query and
// the papers accepted so far. It never fails; the result is always a
// usable non-empty query, falling back to the original when no
// refinement is possible.
func (a *Augmenter) Refine(ctx context.Context, query string, relevant []types.Paper) string {
	if a.LLM != nil {
		if refined, ok := a.refineWithModel(ctx, query, relevant); ok {
			return refined
		}
	}
	return FallbackRefine(query, relevant)
}

func (a *Augmenter) refineWithModel(ctx context.Context, query string, relevant []types.Paper) (string, bool) {
	var papers strings.Builder
	for i, p := range relevant {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&papers, "- %s\n", p.Title)
		if p.Abstract != "" {
			sample := p.Abstract
			if len(sample) > promptAbstractSample {
				sample = sample[:promptAbstractSample]
			}
			fmt.Fprintf(&papers, "  %s\n", sample)
		}
	}

	prompt := fmt.Sprintf(promptTemplate, query, papers.String())
	reply, err := a.LLM.GenerateText(ctx, prompt)
	if err != nil {
		return "", false
	}

	refined := sanitizeReply(reply)
	if refined == "" || len(strings.Fields(refined)) > maxReplyTokens {
		return "", false
	}
	return refined, true
}

// sanitizeReply strips surrounding quotes and whitespace from a model
// reply and collapses it to a single line.
func sanitizeReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if idx := strings.IndexByte(reply, '\n'); idx >= 0 {
		reply = reply[:idx]
	}
	reply = strings.Trim(reply, `"'`)
	return strings.TrimSpace(reply)
}

// FallbackRefine appends the most frequent informative terms from the
// relevant papers to the original query. Terms are alphabetic words of
// at least four characters mined from titles and the leading portion
// of abstracts, excluding stop words and words already in the query.
// Only terms appearing more than once qualify; when none do, the
// original query comes back unchanged.
func FallbackRefine(query string, relevant []types.Paper) string {
	queryTokens := keywords.TokenSet(query)

	counts := make(map[string]int)
	for _, p := range relevant {
		sample := p.Abstract
		if len(sample) > abstractSample {
			sample = sample[:abstractSample]
		}
		for _, tok := range keywords.Tokenize(p.Title + " " + sample) {
			if len(tok) < 4 || !isAlphabetic(tok) {
				continue
			}
			if keywords.StopWords[tok] || queryTokens[tok] {
				continue
			}
			counts[tok]++
		}
	}

	type scored struct {
		term  string
		count int
	}
	var ranked []scored
	for term, count := range counts {
		if count < 2 {
			continue
		}
		ranked = append(ranked, scored{term, count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	if len(ranked) == 0 {
		return query
	}
	if len(ranked) > fallbackTermCount {
		ranked = ranked[:fallbackTermCount]
	}

	parts := []string{query}
	for _, s := range ranked {
		parts = append(parts, s.term)
	}
	return strings.Join(parts, " ")
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
