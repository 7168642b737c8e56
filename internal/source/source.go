// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source queries heterogeneous scholarly APIs and normalizes
// their responses into the canonical Paper record. Each adapter (Google
// Scholar via SerpAPI, Crossref, OpenAlex, arXiv) implements the Source
// interface per the Strategy pattern; the federation orchestrator works
// against the interface only.
package source

import (
	"context"
	"strings"

	"github.com/pdiddy/litscout/pkg/types"
)

// Source searches a single scholarly API.
type Source interface {
	Name() types.PaperSource
	Search(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, error)
}

// maxAbstractLen is the abstract truncation limit applied by adapters.
const maxAbstractLen = 1000

// truncateAbstract caps the abstract at maxAbstractLen characters,
// appending an ellipsis when it was cut.
func truncateAbstract(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxAbstractLen {
		return s
	}
	return s[:maxAbstractLen] + "..."
}

// keepPaper applies the cheap in-adapter filters: year range, citation
// bounds, required keywords, and excluded keywords. Venue, author, and
// paper-type constraints are the orchestrator's job.
func keepPaper(p types.Paper, filters types.SearchFilters) bool {
	return filters.MatchesYear(p) &&
		filters.MatchesCitations(p) &&
		filters.MatchesKeywords(p)
}

// finish runs the cheap filters over raw adapter output and caps the
// result at max*2; the orchestrator re-caps after validation.
func finish(papers []types.Paper, filters types.SearchFilters, max int) []types.Paper {
	var kept []types.Paper
	for _, p := range papers {
		if p.Title == "" {
			continue
		}
		if !keepPaper(p, filters) {
			continue
		}
		kept = append(kept, p)
		if len(kept) >= max*2 {
			break
		}
	}
	return kept
}

// requestRows returns how many rows to ask the API for: double the
// target so in-adapter filtering still leaves enough candidates.
func requestRows(max, ceiling int) int {
	rows := max * 2
	if rows < 1 {
		rows = 1
	}
	if ceiling > 0 && rows > ceiling {
		rows = ceiling
	}
	return rows
}
