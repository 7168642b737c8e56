// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/litscout/internal/httputil"
	"github.com/pdiddy/litscout/pkg/types"
)

func init() {
	// Keep retry backoffs out of test wall time.
	httputil.RetryBaseDelay = 1 * time.Millisecond
	httputil.RateLimitDelay = 1 * time.Millisecond
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults: 10,
		Email:      "test@example.com",
	}
}

func TestTruncateAbstract(t *testing.T) {
	long := strings.Repeat("a", 2000)
	got := truncateAbstract(long)
	if len(got) != maxAbstractLen+3 {
		t.Errorf("len = %d, want %d", len(got), maxAbstractLen+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated abstract should end with ellipsis")
	}

	short := "a short abstract"
	if truncateAbstract(short) != short {
		t.Errorf("short abstract should be unchanged")
	}
}

func TestKeepPaper(t *testing.T) {
	paper := types.Paper{
		Title:           "Transformer Networks for Sequence Modeling",
		Abstract:        "We study attention mechanisms in deep learning.",
		PublicationDate: "2021",
		CitationCount:   150,
	}

	tests := []struct {
		name    string
		filters types.SearchFilters
		want    bool
	}{
		{"no filters", types.SearchFilters{}, true},
		{"year in range", types.SearchFilters{YearStart: 2020, YearEnd: 2024}, true},
		{"year too early", types.SearchFilters{YearStart: 2022}, false},
		{"year too late", types.SearchFilters{YearEnd: 2020}, false},
		{"citations above min", types.SearchFilters{MinCitations: 100}, true},
		{"citations below min", types.SearchFilters{MinCitations: 200}, false},
		{"max citations zero means unlimited", types.SearchFilters{MaxCitations: 0}, true},
		{"citations above max", types.SearchFilters{MaxCitations: 100}, false},
		{"required keyword present", types.SearchFilters{KeywordRequirements: []string{"attention"}}, true},
		{"required keyword missing", types.SearchFilters{KeywordRequirements: []string{"quantum"}}, false},
		{"excluded keyword present", types.SearchFilters{ExcludeKeywords: []string{"attention"}}, false},
		{"excluded keyword absent", types.SearchFilters{ExcludeKeywords: []string{"quantum"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keepPaper(paper, tt.filters); got != tt.want {
				t.Errorf("keepPaper() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeepPaperUnknownYearPasses(t *testing.T) {
	paper := types.Paper{Title: "Old Paper", PublicationDate: types.UnknownYear}
	filters := types.SearchFilters{YearStart: 2020, YearEnd: 2024}
	if !keepPaper(paper, filters) {
		t.Errorf("papers with unknown year should pass the year filter")
	}
}

func TestFinishCapsAtTwiceMax(t *testing.T) {
	var papers []types.Paper
	for i := 0; i < 50; i++ {
		papers = append(papers, types.Paper{Title: "Paper", PublicationDate: "2021"})
	}

	got := finish(papers, types.SearchFilters{}, 10)
	if len(got) != 20 {
		t.Errorf("len = %d, want 20", len(got))
	}
}

func TestFinishDropsUntitled(t *testing.T) {
	papers := []types.Paper{
		{Title: ""},
		{Title: "Real Paper"},
	}
	got := finish(papers, types.SearchFilters{}, 10)
	if len(got) != 1 || got[0].Title != "Real Paper" {
		t.Errorf("finish should drop papers without a title, got %v", got)
	}
}

func TestRequestRows(t *testing.T) {
	tests := []struct {
		max, ceiling, want int
	}{
		{10, 100, 20},
		{0, 100, 1},
		{80, 100, 100},
		{10, 0, 20},
	}
	for _, tt := range tests {
		if got := requestRows(tt.max, tt.ceiling); got != tt.want {
			t.Errorf("requestRows(%d, %d) = %d, want %d", tt.max, tt.ceiling, got, tt.want)
		}
	}
}
