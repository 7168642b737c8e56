// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/litscout/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Attention Mechanisms in  Deep Learning</title>
    <summary>We survey attention mechanisms across architectures.</summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
    <category term="cs.LG"/>
    <category term="cs.CL"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2104.00001v2</id>
    <title>Graph Transformers</title>
    <summary>Transformers on graphs.</summary>
    <published>2021-04-01T00:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/junk/nothing</id>
    <title>Broken Entry</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFixture))
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	s := &Arxiv{Client: ts.Client(), Config: testCfg()}
	papers, err := s.Search(context.Background(), "attention mechanisms", types.SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.Contains(gotQuery, "all:attention+mechanisms") {
		t.Errorf("search_query = %q, want all:attention+mechanisms", gotQuery)
	}
	// The broken entry has no /abs/ ID and is skipped.
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p := papers[0]
	if p.Title != "Attention Mechanisms in Deep Learning" {
		t.Errorf("Title = %q; internal whitespace should be collapsed", p.Title)
	}
	if p.Source != types.SourceArxiv {
		t.Errorf("Source = %q, want %q", p.Source, types.SourceArxiv)
	}
	if p.PublicationDate != "2023" {
		t.Errorf("PublicationDate = %q, want 2023", p.PublicationDate)
	}
	if p.CitationCount != 0 {
		t.Errorf("CitationCount = %d, arXiv reports no citations", p.CitationCount)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "cs.LG" {
		t.Errorf("Categories = %v", p.Categories)
	}
	if p.URL != "https://arxiv.org/abs/2301.07041" {
		t.Errorf("URL = %q", p.URL)
	}
	if p.ID == "" || len(p.ID) < 8 {
		t.Errorf("ID = %q, want stable 12-hex slug", p.ID)
	}
}

func TestArxivEmptyQuery(t *testing.T) {
	s := &Arxiv{Client: http.DefaultClient, Config: testCfg()}
	papers, err := s.Search(context.Background(), "   ", types.SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if papers != nil {
		t.Errorf("empty query should return nil without a network call")
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		filters types.SearchFilters
		want    string
	}{
		{
			name:  "no year filter",
			query: "neural networks",
			want:  "all:neural+networks",
		},
		{
			name:    "full year range",
			query:   "transformers",
			filters: types.SearchFilters{YearStart: 2020, YearEnd: 2024},
			want:    "all:transformers AND submittedDate:[20200101 TO 20241231]",
		},
		{
			name:    "open-ended start",
			query:   "transformers",
			filters: types.SearchFilters{YearEnd: 2022},
			want:    "all:transformers AND submittedDate:[19000101 TO 20221231]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.query, tt.filters); got != tt.want {
				t.Errorf("buildArxivQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"versioned", "http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"unversioned", "http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"v2", "https://arxiv.org/abs/2104.00001v2", "2104.00001"},
		{"no abs path", "http://arxiv.org/junk/2301.07041", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractArxivID(tt.url); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestArxivServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	s := &Arxiv{Client: ts.Client(), Config: testCfg()}
	_, err := s.Search(context.Background(), "anything", types.SearchFilters{}, 10)
	if err == nil {
		t.Fatal("expected error on persistent 5xx")
	}
}
