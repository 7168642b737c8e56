// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses papers that refer to the same work across
// sources. Identity is established by DOI, then exact URL, then
// normalized-title Jaccard similarity; the winner of a duplicate pair
// is chosen deterministically.
package dedup

import (
	"strings"
	"unicode"

	"github.com/pdiddy/litscout/pkg/types"
)

// titleSimilarityFloor is the Jaccard similarity over title tokens at
// which two papers count as the same work.
const titleSimilarityFloor = 0.85

// Dedup returns papers with duplicates removed. Order follows first
// appearance of each surviving paper; when a later duplicate wins a
// tie-break it replaces the loser in place, so positions are stable.
// Dedup is idempotent: Dedup(Dedup(x)) == Dedup(x).
func Dedup(papers []types.Paper) []types.Paper {
	t := NewTracker()
	for _, p := range papers {
		t.Add(p)
	}
	return t.Papers()
}

// Tracker deduplicates papers incrementally, so a multi-round search
// can recognize works it has already seen in earlier rounds.
type Tracker struct {
	kept        []types.Paper
	byDOI       map[string]int
	byURL       map[string]int
	titleTokens []map[string]bool // parallel to kept
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byDOI: make(map[string]int),
		byURL: make(map[string]int),
	}
}

// Add records a paper and reports whether it is a new work. Duplicates
// return false; a duplicate that wins the tie-break replaces the
// incumbent in place.
func (t *Tracker) Add(p types.Paper) bool {
	idx := -1

	if p.DOI != "" {
		if i, ok := t.byDOI[strings.ToLower(p.DOI)]; ok {
			idx = i
		}
	}
	if idx < 0 && p.URL != "" {
		if i, ok := t.byURL[strings.ToLower(p.URL)]; ok {
			idx = i
		}
	}
	tokens := titleTokenSet(p.Title)
	if idx < 0 {
		for i, existing := range t.titleTokens {
			if jaccard(tokens, existing) >= titleSimilarityFloor {
				idx = i
				break
			}
		}
	}

	if idx >= 0 {
		if wins(p, t.kept[idx]) {
			t.kept[idx] = p
			t.titleTokens[idx] = tokens
		}
		// Either way the duplicate's identifiers now name the kept work,
		// so register them; a third copy sharing only the DOI or URL
		// must still collapse onto this entry.
		if p.DOI != "" {
			t.byDOI[strings.ToLower(p.DOI)] = idx
		}
		if p.URL != "" {
			t.byURL[strings.ToLower(p.URL)] = idx
		}
		return false
	}

	t.kept = append(t.kept, p)
	t.titleTokens = append(t.titleTokens, tokens)
	i := len(t.kept) - 1
	if p.DOI != "" {
		t.byDOI[strings.ToLower(p.DOI)] = i
	}
	if p.URL != "" {
		t.byURL[strings.ToLower(p.URL)] = i
	}
	return true
}

// Len reports how many distinct works the tracker has seen.
func (t *Tracker) Len() int { return len(t.kept) }

// Papers returns the surviving papers in first-seen order.
func (t *Tracker) Papers() []types.Paper {
	out := make([]types.Paper, len(t.kept))
	copy(out, t.kept)
	return out
}

// wins reports whether the challenger replaces the incumbent: higher
// citation count first, then non-arXiv over arXiv, else the
// earlier-seen incumbent stays.
func wins(challenger, incumbent types.Paper) bool {
	if challenger.CitationCount != incumbent.CitationCount {
		return challenger.CitationCount > incumbent.CitationCount
	}
	if challenger.Source != types.SourceArxiv && incumbent.Source == types.SourceArxiv {
		return true
	}
	return false
}

// NormalizeTitle lowercases a title, strips non-alphanumeric runes, and
// collapses whitespace runs.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// titleTokenSet splits the normalized title into a token set.
func titleTokenSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(NormalizeTitle(title)) {
		set[tok] = true
	}
	return set
}

// jaccard computes |A∩B| / |A∪B| over token sets. Two empty sets have
// similarity 0 so untitled records never collide.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
