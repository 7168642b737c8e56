// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

// crossrefAPIBase is the Crossref Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

const crossrefSelect = "DOI,title,author,abstract,container-title,is-referenced-by-count,published-print,published-online,URL"

// conferenceVenueTerms marks venues Crossref reports as journals but
// that are actually proceedings.
var conferenceVenueTerms = []string{"proceedings", "conference", "workshop", "symposium"}

// jatsTagPattern strips JATS XML markup from Crossref abstracts.
var jatsTagPattern = regexp.MustCompile(`<[^>]+>`)

// Crossref queries the Crossref REST API. DOIs are always present in
// its records, which makes it the dedup anchor among the sources.
type Crossref struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the source tag.
func (s *Crossref) Name() types.PaperSource { return types.SourceCrossref }

// Search queries Crossref and returns normalized papers.
func (s *Crossref) Search(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {fmt.Sprintf("%d", requestRows(max, 100))},
		"sort":                {"relevance"},
		"select":              {crossrefSelect},
	}
	var dateFilters []string
	if filters.YearStart != 0 {
		dateFilters = append(dateFilters, fmt.Sprintf("from-pub-date:%d", filters.YearStart))
	}
	if filters.YearEnd != 0 {
		dateFilters = append(dateFilters, fmt.Sprintf("until-pub-date:%d", filters.YearEnd))
	}
	if len(dateFilters) > 0 {
		params.Set("filter", strings.Join(dateFilters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// Crossref politeness: include a contact address in the User-Agent.
	req.Header.Set("User-Agent", fmt.Sprintf("%s (mailto:%s)", s.Config.UserAgent, s.Config.Email))

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	var papers []types.Paper
	for _, item := range cr.Message.Items {
		if len(item.Title) == 0 || item.Title[0] == "" {
			continue
		}

		doi := types.NormalizeDOI(item.DOI)
		venue := ""
		if len(item.ContainerTitle) > 0 {
			venue = item.ContainerTitle[0]
		}

		p := types.Paper{
			ID:              types.PaperID(types.SourceCrossref, doi),
			Title:           item.Title[0],
			Abstract:        truncateAbstract(stripJATS(item.Abstract)),
			PublicationDate: types.YearString(crossrefYear(item)),
			Journal:         venue,
			CitationCount:   item.IsReferencedByCount,
			URL:             item.URL,
			DOI:             doi,
			Source:          types.SourceCrossref,
		}

		for _, a := range item.Authors {
			name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if isConferenceVenue(venue) {
			p.PaperType = types.TypeConference
		}

		papers = append(papers, p)
	}
	return finish(papers, filters, max), nil
}

// crossrefYear picks the publication year from print date first, then
// online date.
func crossrefYear(item crossrefItem) int {
	for _, d := range []crossrefDate{item.PublishedPrint, item.PublishedOnline} {
		if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
			return d.DateParts[0][0]
		}
	}
	return 0
}

// isConferenceVenue reports whether the venue name marks proceedings.
func isConferenceVenue(venue string) bool {
	v := strings.ToLower(venue)
	for _, term := range conferenceVenueTerms {
		if strings.Contains(v, term) {
			return true
		}
	}
	return false
}

// stripJATS removes JATS XML tags from a Crossref abstract.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	plain := jatsTagPattern.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI                 string           `json:"DOI"`
	Title               []string         `json:"title"`
	Authors             []crossrefAuthor `json:"author"`
	Abstract            string           `json:"abstract"`
	ContainerTitle      []string         `json:"container-title"`
	IsReferencedByCount int              `json:"is-referenced-by-count"`
	PublishedPrint      crossrefDate     `json:"published-print"`
	PublishedOnline     crossrefDate     `json:"published-online"`
	URL                 string           `json:"URL"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}
