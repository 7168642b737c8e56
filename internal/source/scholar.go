// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

// serpAPIBase is the SerpAPI endpoint used for Google Scholar queries.
// Declared as a var so tests can substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search"

// citedByPattern is the fallback for citation counts embedded in result
// text, e.g. "Cited by 1234".
var citedByPattern = regexp.MustCompile(`Cited by (\d+)`)

// yearPattern finds a plausible publication year in the summary line.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Scholar queries Google Scholar through SerpAPI. When no API key is
// configured the adapter is a silent no-op so the rest of the
// federation keeps working.
type Scholar struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the source tag.
func (s *Scholar) Name() types.PaperSource { return types.SourceScholar }

// Search queries SerpAPI's Google Scholar engine and returns normalized
// papers. Scholar records rarely carry DOIs; dedup falls back to URL
// and title signals for them.
func (s *Scholar) Search(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if s.Config.SerpAPIKey == "" {
		return nil, nil
	}

	params := url.Values{
		"engine":  {"google_scholar"},
		"q":       {query},
		"num":     {strconv.Itoa(requestRows(max, 20))},
		"hl":      {"en"},
		"as_sdt":  {"0,5"},
		"api_key": {s.Config.SerpAPIKey},
	}
	if filters.YearStart != 0 {
		params.Set("as_ylo", strconv.Itoa(filters.YearStart))
	}
	if filters.YearEnd != 0 {
		params.Set("as_yhi", strconv.Itoa(filters.YearEnd))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned HTTP %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SerpAPI response: %w", err)
	}

	var papers []types.Paper
	for _, result := range sr.OrganicResults {
		if result.Title == "" {
			continue
		}

		nativeID := result.Link
		if nativeID == "" {
			nativeID = result.Title
		}

		p := types.Paper{
			ID:              types.PaperID(types.SourceScholar, nativeID),
			Title:           result.Title,
			Abstract:        truncateAbstract(result.Snippet),
			PublicationDate: scholarYear(result.PublicationInfo.Summary),
			Journal:         scholarVenue(result.PublicationInfo.Summary),
			CitationCount:   scholarCitations(result),
			URL:             result.Link,
			Source:          types.SourceScholar,
		}
		for _, a := range result.PublicationInfo.Authors {
			if a.Name != "" {
				p.Authors = append(p.Authors, a.Name)
			}
		}

		papers = append(papers, p)
	}
	return finish(papers, filters, max), nil
}

// scholarCitations reads the citation count from inline_links, falling
// back to the "Cited by N" text scan.
func scholarCitations(r serpResult) int {
	if r.InlineLinks.CitedBy.Total > 0 {
		return r.InlineLinks.CitedBy.Total
	}
	for _, text := range []string{r.Snippet, r.PublicationInfo.Summary} {
		if m := citedByPattern.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

// scholarVenue pulls the venue from the publication summary, which has
// the shape "Authors - Venue, Year - Publisher"; the venue is the
// segment after the last "-" separator before the publisher.
func scholarVenue(summary string) string {
	parts := strings.Split(summary, " - ")
	if len(parts) < 2 {
		return ""
	}
	venue := parts[len(parts)-1]
	if len(parts) >= 3 {
		venue = parts[len(parts)-2]
	}
	// Drop a trailing ", 2021" style year.
	if idx := strings.LastIndex(venue, ","); idx > 0 {
		if yearPattern.MatchString(venue[idx:]) {
			venue = venue[:idx]
		}
	}
	return strings.TrimSpace(venue)
}

// scholarYear extracts a 4-digit year from the publication summary.
func scholarYear(summary string) string {
	if m := yearPattern.FindString(summary); m != "" {
		return m
	}
	return types.UnknownYear
}

// SerpAPI JSON structures.
type serpResponse struct {
	OrganicResults []serpResult `json:"organic_results"`
}

type serpResult struct {
	Title           string              `json:"title"`
	Link            string              `json:"link"`
	Snippet         string              `json:"snippet"`
	PublicationInfo serpPublicationInfo `json:"publication_info"`
	InlineLinks     serpInlineLinks     `json:"inline_links"`
}

type serpPublicationInfo struct {
	Summary string       `json:"summary"`
	Authors []serpAuthor `json:"authors"`
}

type serpAuthor struct {
	Name string `json:"name"`
}

type serpInlineLinks struct {
	CitedBy serpCitedBy `json:"cited_by"`
}

type serpCitedBy struct {
	Total int `json:"total"`
}
