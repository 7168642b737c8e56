// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. arXiv reports no citation counts,
// so every paper carries CitationCount 0 and the citation filter is
// effectively disabled for this source.
type Arxiv struct {
	Client *http.Client
	Config types.SearchConfig
}

// Name returns the source tag.
func (s *Arxiv) Name() types.PaperSource { return types.SourceArxiv }

// Search queries arXiv and returns normalized papers.
func (s *Arxiv) Search(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	searchQuery := buildArxivQuery(query, filters)
	params := url.Values{
		"search_query": {searchQuery},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(requestRows(max, 100))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var papers []types.Paper
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" || strings.TrimSpace(entry.Title) == "" {
			continue
		}

		p := types.Paper{
			ID:              types.PaperID(types.SourceArxiv, arxivID),
			Title:           strings.Join(strings.Fields(entry.Title), " "),
			Abstract:        truncateAbstract(entry.Summary),
			PublicationDate: types.UnknownYear,
			Journal:         "arXiv preprint",
			URL:             "https://arxiv.org/abs/" + arxivID,
			Source:          types.SourceArxiv,
		}

		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		for _, c := range entry.Categories {
			if c.Term != "" {
				p.Categories = append(p.Categories, c.Term)
			}
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.PublicationDate = types.YearString(t.Year())
		}

		papers = append(papers, p)
	}
	return finish(papers, filters, max), nil
}

// buildArxivQuery constructs the search_query parameter, adding a
// submittedDate window when a year range is set.
func buildArxivQuery(query string, filters types.SearchFilters) string {
	terms := strings.Fields(query)
	q := "all:" + strings.Join(terms, "+")

	if filters.YearStart != 0 || filters.YearEnd != 0 {
		start := "19000101"
		end := "20301231"
		if filters.YearStart != 0 {
			start = fmt.Sprintf("%d0101", filters.YearStart)
		}
		if filters.YearEnd != 0 {
			end = fmt.Sprintf("%d1231", filters.YearEnd)
		}
		q += fmt.Sprintf(" AND submittedDate:[%s TO %s]", start, end)
	}
	return q
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
