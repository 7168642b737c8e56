// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Year bounds accepted by SearchFilters.
const (
	MinFilterYear = 1900
	MaxFilterYear = 2030
)

// SearchFilters holds the hard constraints a search result must satisfy.
// Construct it with NewSearchFilters; a validated instance is immutable
// by convention and safe to share across goroutines.
type SearchFilters struct {
	// YearStart and YearEnd bound the publication year (inclusive).
	// Zero means unbounded on that side.
	YearStart int `json:"year_start,omitempty" yaml:"year_start,omitempty"`
	YearEnd   int `json:"year_end,omitempty" yaml:"year_end,omitempty"`

	// MinCitations is the minimum citation count. MaxCitations of 0
	// means no upper bound; the UI sends 0 for "unlimited".
	MinCitations int `json:"min_citations,omitempty" yaml:"min_citations,omitempty"`
	MaxCitations int `json:"max_citations,omitempty" yaml:"max_citations,omitempty"`

	// IncludePreprints controls whether arXiv-style preprints are kept
	// (default true).
	IncludePreprints bool `json:"include_preprints" yaml:"include_preprints"`

	// KeywordRequirements must all appear in title+abstract
	// (case-insensitive substring). ExcludeKeywords must not appear.
	KeywordRequirements []string `json:"keyword_requirements,omitempty" yaml:"keyword_requirements,omitempty"`
	ExcludeKeywords     []string `json:"exclude_keywords,omitempty" yaml:"exclude_keywords,omitempty"`

	// JournalFilter and AuthorFilter match case-insensitively as
	// substrings against the venue and any author name.
	JournalFilter []string `json:"journal_filter,omitempty" yaml:"journal_filter,omitempty"`
	AuthorFilter  []string `json:"author_filter,omitempty" yaml:"author_filter,omitempty"`

	// PaperTypeFilter restricts results to one paper type; empty means
	// any type.
	PaperTypeFilter PaperType `json:"paper_type_filter,omitempty" yaml:"paper_type_filter,omitempty"`
}

// NewSearchFilters validates the given filters and returns a copy ready
// for use. Invalid combinations are rejected here so they never reach
// the orchestrator or any network call.
func NewSearchFilters(f SearchFilters) (SearchFilters, error) {
	if f.YearStart != 0 && (f.YearStart < MinFilterYear || f.YearStart > MaxFilterYear) {
		return SearchFilters{}, fmt.Errorf("year_start %d outside [%d, %d]", f.YearStart, MinFilterYear, MaxFilterYear)
	}
	if f.YearEnd != 0 && (f.YearEnd < MinFilterYear || f.YearEnd > MaxFilterYear) {
		return SearchFilters{}, fmt.Errorf("year_end %d outside [%d, %d]", f.YearEnd, MinFilterYear, MaxFilterYear)
	}
	if f.YearStart != 0 && f.YearEnd != 0 && f.YearEnd < f.YearStart {
		return SearchFilters{}, fmt.Errorf("year_end %d before year_start %d", f.YearEnd, f.YearStart)
	}
	if f.MinCitations < 0 {
		return SearchFilters{}, fmt.Errorf("min_citations %d is negative", f.MinCitations)
	}
	if f.MaxCitations < 0 {
		return SearchFilters{}, fmt.Errorf("max_citations %d is negative", f.MaxCitations)
	}
	// MaxCitations == 0 means unlimited, so no ordering check against
	// MinCitations unless an actual bound was given.
	if f.MaxCitations > 0 && f.MaxCitations < f.MinCitations {
		return SearchFilters{}, fmt.Errorf("max_citations %d below min_citations %d", f.MaxCitations, f.MinCitations)
	}
	if f.PaperTypeFilter != "" {
		if !ValidPaperType(f.PaperTypeFilter) || f.PaperTypeFilter == TypeUnknownPub {
			return SearchFilters{}, fmt.Errorf("paper_type_filter %q is not one of review, conference, journal", f.PaperTypeFilter)
		}
	}
	return f, nil
}

// DefaultFilters returns an empty filter set with preprints included.
func DefaultFilters() SearchFilters {
	return SearchFilters{IncludePreprints: true}
}

// MatchesYear reports whether the paper's year satisfies the range.
// Papers with an unknown year pass; the year constraint only excludes
// papers known to be outside it.
func (f SearchFilters) MatchesYear(p Paper) bool {
	year := p.Year()
	if year == 0 {
		return true
	}
	if f.YearStart != 0 && year < f.YearStart {
		return false
	}
	if f.YearEnd != 0 && year > f.YearEnd {
		return false
	}
	return true
}

// MatchesCitations reports whether the citation count is in range.
func (f SearchFilters) MatchesCitations(p Paper) bool {
	if p.CitationCount < f.MinCitations {
		return false
	}
	if f.MaxCitations > 0 && p.CitationCount > f.MaxCitations {
		return false
	}
	return true
}

// MatchesKeywords reports whether every required keyword appears and no
// excluded keyword appears in title+abstract.
func (f SearchFilters) MatchesKeywords(p Paper) bool {
	text := p.SearchText()
	for _, kw := range f.KeywordRequirements {
		if kw == "" {
			continue
		}
		if !strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}
	for _, kw := range f.ExcludeKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// MatchesVenue reports whether the paper passes the journal and
// preprint constraints.
func (f SearchFilters) MatchesVenue(p Paper) bool {
	if !f.IncludePreprints && p.Source == SourceArxiv {
		return false
	}
	if len(f.JournalFilter) == 0 {
		return true
	}
	venue := strings.ToLower(p.Journal)
	for _, j := range f.JournalFilter {
		if j != "" && strings.Contains(venue, strings.ToLower(j)) {
			return true
		}
	}
	return false
}

// MatchesAuthors reports whether any author matches the author filter.
func (f SearchFilters) MatchesAuthors(p Paper) bool {
	if len(f.AuthorFilter) == 0 {
		return true
	}
	for _, want := range f.AuthorFilter {
		w := strings.ToLower(want)
		if w == "" {
			continue
		}
		for _, a := range p.Authors {
			if strings.Contains(strings.ToLower(a), w) {
				return true
			}
		}
	}
	return false
}

// MatchesType reports whether the paper type passes the type filter.
// Papers not yet classified (unknown) pass; the classifier runs late.
func (f SearchFilters) MatchesType(p Paper) bool {
	if f.PaperTypeFilter == "" {
		return true
	}
	if p.PaperType == "" || p.PaperType == TypeUnknownPub {
		return true
	}
	return p.PaperType == f.PaperTypeFilter
}

// Allows reports whether the paper satisfies every hard filter.
func (f SearchFilters) Allows(p Paper) bool {
	return f.MatchesYear(p) &&
		f.MatchesCitations(p) &&
		f.MatchesKeywords(p) &&
		f.MatchesVenue(p) &&
		f.MatchesAuthors(p) &&
		f.MatchesType(p)
}
