// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/litscout/pkg/types"
)

const serpFixture = `{
  "organic_results": [
    {
      "title": "Language Models are Few-Shot Learners",
      "link": "https://example.org/gpt3",
      "snippet": "We train GPT-3, an autoregressive language model...",
      "publication_info": {
        "summary": "T Brown, B Mann - Advances in neural information processing systems, 2020 - proceedings.neurips.cc",
        "authors": [{"name": "T Brown"}, {"name": "B Mann"}]
      },
      "inline_links": {"cited_by": {"total": 15000}}
    },
    {
      "title": "An Old Result",
      "link": "https://example.org/old",
      "snippet": "Classic methods. Cited by 42",
      "publication_info": {"summary": "A Author - Some Journal, 1998 - publisher"}
    }
  ]
}`

func TestScholarSearch(t *testing.T) {
	var gotEngine, gotYlo string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEngine = r.URL.Query().Get("engine")
		gotYlo = r.URL.Query().Get("as_ylo")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(serpFixture))
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	cfg := testCfg()
	cfg.SerpAPIKey = "sk_test"
	s := &Scholar{Client: ts.Client(), Config: cfg}

	papers, err := s.Search(context.Background(), "language models", types.SearchFilters{YearStart: 1990}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotEngine != "google_scholar" {
		t.Errorf("engine = %q", gotEngine)
	}
	if gotYlo != "1990" {
		t.Errorf("as_ylo = %q, want 1990", gotYlo)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p := papers[0]
	if p.CitationCount != 15000 {
		t.Errorf("CitationCount = %d, want 15000 from inline_links", p.CitationCount)
	}
	if p.PublicationDate != "2020" {
		t.Errorf("PublicationDate = %q", p.PublicationDate)
	}
	if p.Journal != "Advances in neural information processing systems" {
		t.Errorf("Journal = %q", p.Journal)
	}
	if p.DOI != "" {
		t.Errorf("Scholar results carry no DOI, got %q", p.DOI)
	}
	if p.Source != types.SourceScholar {
		t.Errorf("Source = %q", p.Source)
	}

	// Second paper has no inline_links; the regex fallback applies.
	if papers[1].CitationCount != 42 {
		t.Errorf("CitationCount = %d, want 42 from 'Cited by' text", papers[1].CitationCount)
	}
}

func TestScholarMissingKeyIsSilent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request should be made without an API key")
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	s := &Scholar{Client: ts.Client(), Config: testCfg()}
	papers, err := s.Search(context.Background(), "anything", types.SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("missing key must not error, got %v", err)
	}
	if papers != nil {
		t.Errorf("missing key should yield no papers")
	}
}

func TestScholarVenue(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{
			"authors venue year publisher",
			"T Brown, B Mann - Advances in neural information processing systems, 2020 - proceedings.neurips.cc",
			"Advances in neural information processing systems",
		},
		{
			"authors and venue only",
			"A Author - Some Journal, 1998",
			"Some Journal",
		},
		{"no separators", "just a title", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scholarVenue(tt.summary); got != tt.want {
				t.Errorf("scholarVenue(%q) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestScholarYear(t *testing.T) {
	if got := scholarYear("A Author - Venue, 2015 - pub"); got != "2015" {
		t.Errorf("scholarYear = %q, want 2015", got)
	}
	if got := scholarYear("no year here"); got != types.UnknownYear {
		t.Errorf("scholarYear = %q, want %q", got, types.UnknownYear)
	}
}
