// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// conceptScoreFloor is the minimum concept score kept as a category.
const conceptScoreFloor = 0.3

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the source tag.
func (s *OpenAlex) Name() types.PaperSource { return types.SourceOpenAlex }

// Search queries OpenAlex and returns normalized papers.
func (s *OpenAlex) Search(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", requestRows(max, 200))},
		"sort":     {"cited_by_count:desc"},
	}
	if s.Config.Email != "" {
		params.Set("mailto", s.Config.Email)
	}
	if filters.YearStart != 0 || filters.YearEnd != 0 {
		start := filters.YearStart
		if start == 0 {
			start = types.MinFilterYear
		}
		end := filters.YearEnd
		if end == 0 {
			end = types.MaxFilterYear
		}
		params.Set("filter", fmt.Sprintf("publication_year:%d-%d", start, end))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var papers []types.Paper
	for _, work := range oar.Results {
		if work.Title == "" {
			continue
		}

		doi := types.NormalizeDOI(work.DOI)
		nativeID := doi
		if nativeID == "" {
			nativeID = work.ID
		}

		p := types.Paper{
			ID:              types.PaperID(types.SourceOpenAlex, nativeID),
			Title:           work.Title,
			Abstract:        ReconstructAbstract(work.AbstractInvertedIndex),
			PublicationDate: types.YearString(work.PublicationYear),
			Journal:         work.PrimaryLocation.Source.DisplayName,
			CitationCount:   work.CitedByCount,
			URL:             work.ID,
			DOI:             doi,
			Source:          types.SourceOpenAlex,
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				p.Authors = append(p.Authors, authorship.Author.DisplayName)
			}
		}
		for _, c := range work.Concepts {
			if c.Score >= conceptScoreFloor && c.DisplayName != "" {
				p.Categories = append(p.Categories, c.DisplayName)
			}
		}

		papers = append(papers, p)
	}
	return finish(papers, filters, max), nil
}

// ReconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the positions at
// which it appears; the words are placed at those positions and joined
// with spaces. Returns "" on any malformed input.
func ReconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	maxPos := -1
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			if pos < 0 {
				return ""
			}
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return ""
	}

	words := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			words[pos] = word
		}
	}

	// Drop gaps left by missing positions.
	kept := words[:0]
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	return truncateAbstract(strings.Join(kept, " "))
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Concepts              []openAlexConcept    `json:"concepts"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexConcept struct {
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

type openAlexLocation struct {
	Source openAlexVenue `json:"source"`
}

type openAlexVenue struct {
	DisplayName string `json:"display_name"`
}
