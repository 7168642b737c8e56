// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litscout pipeline:
// the canonical Paper record every source adapter normalizes into, the
// validated SearchFilters, relevance scoring results, and per-stage
// configuration.
package types

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// PaperSource identifies which backend produced a paper.
type PaperSource string

const (
	SourceScholar    PaperSource = "google_scholar_serpapi"
	SourceCrossref   PaperSource = "crossref"
	SourceOpenAlex   PaperSource = "openalex"
	SourceArxiv      PaperSource = "arxiv"
	SourceUserUpload PaperSource = "user_upload"
)

// ValidSource reports whether s is one of the known source tags.
func ValidSource(s PaperSource) bool {
	switch s {
	case SourceScholar, SourceCrossref, SourceOpenAlex, SourceArxiv, SourceUserUpload:
		return true
	}
	return false
}

// PaperType is the rule-based publication category of a paper.
type PaperType string

const (
	TypeReview     PaperType = "review"
	TypeConference PaperType = "conference"
	TypeJournal    PaperType = "journal"
	TypeUnknownPub PaperType = "unknown"
)

// ValidPaperType reports whether t is one of the known paper types.
func ValidPaperType(t PaperType) bool {
	switch t {
	case TypeReview, TypeConference, TypeJournal, TypeUnknownPub:
		return true
	}
	return false
}

// UnknownYear is the sentinel publication date for papers whose year
// could not be determined.
const UnknownYear = "Unknown"

// Paper is the canonical normalized record used throughout the pipeline.
// Adapters produce it; every downstream consumer reads fields directly.
// Empty fields use defined sentinels ("" / "Unknown" / empty slice),
// never a nil that a consumer has to guard against.
type Paper struct {
	// ID is a stable identifier, unique within one pipeline session.
	ID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title; required, non-empty.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the abstract text, truncated by adapters to ~1000 chars.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublicationDate is the 4-digit year if known, else "Unknown".
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// Journal is the venue name.
	Journal string `json:"journal" yaml:"journal"`

	// CitationCount is the citation count reported by the source; never negative.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// URL is the landing page for the paper.
	URL string `json:"url" yaml:"url"`

	// DOI is the bare DOI, without any https://doi.org/ prefix.
	DOI string `json:"doi" yaml:"doi"`

	Keywords   []string `json:"keywords" yaml:"keywords"`
	Categories []string `json:"categories" yaml:"categories"`

	// Source identifies which backend found this paper.
	Source PaperSource `json:"source" yaml:"source"`

	// RelevanceScore, ConfidenceScore, and SimilarityScore are all in
	// [0, 1]; zero when not yet assigned.
	RelevanceScore  float64 `json:"relevance_score" yaml:"relevance_score"`
	ConfidenceScore float64 `json:"confidence_score" yaml:"confidence_score"`
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// PaperType is the rule-based classification (review/conference/journal).
	PaperType PaperType `json:"paper_type" yaml:"paper_type"`

	// Validation annotations filled in by the relevance validator.
	Reasoning  string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	KeyMatches []string `json:"key_matches,omitempty" yaml:"key_matches,omitempty"`
	Concerns   []string `json:"concerns,omitempty" yaml:"concerns,omitempty"`
}

// Year returns the publication year as an integer, or 0 if unknown.
func (p Paper) Year() int {
	if len(p.PublicationDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(p.PublicationDate[:4])
	if err != nil {
		return 0
	}
	return y
}

// HasDOI reports whether the paper carries a DOI.
func (p Paper) HasDOI() bool { return p.DOI != "" }

// SearchText returns the lowercased title+abstract used by cheap
// keyword filters.
func (p Paper) SearchText() string {
	return strings.ToLower(p.Title + " " + p.Abstract)
}

// NormalizeDOI strips resolver prefixes and lowercases a DOI so that
// equality comparison works across sources.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(doi)
}

// PaperID generates a deterministic paper identifier from the source tag
// and the source-native identifier (DOI, arXiv ID, or URL). The ID is the
// first 12 hex characters of SHA-256(source + nativeID).
func PaperID(source PaperSource, nativeID string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte(nativeID))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// YearString converts an integer year to the PublicationDate form,
// returning "Unknown" for non-positive years.
func YearString(year int) string {
	if year <= 0 {
		return UnknownYear
	}
	return strconv.Itoa(year)
}

// RelevanceScore is the outcome of validating one paper against a query.
// All numeric fields are guaranteed in [0, 1]; the slices are never nil.
type RelevanceScore struct {
	Relevance  float64  `json:"relevance_score" yaml:"relevance_score"`
	Confidence float64  `json:"confidence_score" yaml:"confidence_score"`
	Reasoning  string   `json:"reasoning" yaml:"reasoning"`
	KeyMatches []string `json:"key_matches" yaml:"key_matches"`
	Concerns   []string `json:"concerns" yaml:"concerns"`
}

// Normalize clamps scores into [0, 1] and replaces nil slices with empty
// ones so consumers never see a nil.
func (r *RelevanceScore) Normalize() {
	r.Relevance = Clamp01(r.Relevance)
	r.Confidence = Clamp01(r.Confidence)
	if r.KeyMatches == nil {
		r.KeyMatches = []string{}
	}
	if r.Concerns == nil {
		r.Concerns = []string{}
	}
}

// Clamp01 clamps v into the closed interval [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Apply copies the validation outcome onto the paper.
func (r RelevanceScore) Apply(p *Paper) {
	p.RelevanceScore = Clamp01(r.Relevance)
	p.ConfidenceScore = Clamp01(r.Confidence)
	p.Reasoning = r.Reasoning
	p.KeyMatches = r.KeyMatches
	p.Concerns = r.Concerns
}
