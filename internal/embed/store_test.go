// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/litscout/pkg/types"
)

// axisEmbedder maps texts containing a trigger word onto fixed axes so
// similarity rankings are predictable.
type axisEmbedder struct {
	failFor string
}

func (e *axisEmbedder) Dimensions() int { return 3 }

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.failFor != "" && strings.Contains(text, e.failFor) {
		return nil, errors.New("embedding unavailable")
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "graph"):
		return []float32{1, 0.2, 0}, nil
	case strings.Contains(lower, "protein"):
		return []float32{0, 1, 0.2}, nil
	default:
		return []float32{0.1, 0.1, 1}, nil
	}
}

func storePrefix(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "papers")
}

func testPapers() []types.Paper {
	return []types.Paper{
		{ID: "g1", Title: "Graph Neural Networks", DOI: "10.1/g1", Source: types.SourceArxiv, PaperType: types.TypeJournal, RelevanceScore: 0.9, ConfidenceScore: 0.8},
		{ID: "g2", Title: "Graph Attention Models", Source: types.SourceOpenAlex, PaperType: types.TypeConference, RelevanceScore: 0.7, ConfidenceScore: 0.6},
		{ID: "p1", Title: "Protein Structure Prediction", DOI: "10.1/p1", Source: types.SourceCrossref, PaperType: types.TypeJournal, RelevanceScore: 0.5, ConfidenceScore: 0.4},
	}
}

func TestAddAndSearch(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	added, err := s.Add(context.Background(), testPapers(), "graph study", "sess-1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}

	got, err := s.Search(context.Background(), "graph learning", 2, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, p := range got {
		if !strings.Contains(p.Title, "Graph") {
			t.Errorf("unexpected hit %q for a graph query", p.Title)
		}
		if p.SimilarityScore <= 0 || p.SimilarityScore > 1 {
			t.Errorf("SimilarityScore = %v, want in (0, 1]", p.SimilarityScore)
		}
	}
}

func TestAddRecordsProvenance(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers(), "graph study", "sess-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ep, ok := s.Get("g1")
	if !ok {
		t.Fatal("paper g1 missing after Add")
	}
	if ep.SessionID != "sess-1" || ep.SearchQuery != "graph study" {
		t.Errorf("provenance = %q/%q, want the inserting session and query", ep.SessionID, ep.SearchQuery)
	}
	if ep.EmbeddedAt.IsZero() {
		t.Error("EmbeddedAt must be set on insert")
	}
}

func TestEmbedText(t *testing.T) {
	p := types.Paper{
		Title:      "Sparse Models",
		Abstract:   "A short abstract.",
		Keywords:   []string{"sparsity", "pruning"},
		Categories: []string{"machine learning"},
		Journal:    "Nature Machine Intelligence",
	}
	got := embedText(p)
	for _, want := range []string{"Sparse Models", "A short abstract.", "sparsity pruning", "machine learning", "Nature Machine Intelligence"} {
		if !strings.Contains(got, want) {
			t.Errorf("embedText missing %q in %q", want, got)
		}
	}

	if got := embedText(types.Paper{Title: "Only Title"}); got != "Only Title" {
		t.Errorf("embedText = %q, want blank fields dropped", got)
	}
}

func TestEmbeddingSeesKeywordsAndJournal(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Nothing in the title or abstract triggers an axis; the keyword must.
	papers := []types.Paper{
		{ID: "k1", Title: "Untitled Draft", Keywords: []string{"graph"}, PaperType: types.TypeJournal},
	}
	if _, err := s.Add(context.Background(), papers, "q", "s"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Search(context.Background(), "graph", 1, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].SimilarityScore < 0.9 {
		t.Errorf("got %v, want the keyword to drive the embedding", got)
	}
}

func TestAddSkipsDuplicates(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers(), "graph study", "sess-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	dupes := []types.Paper{
		{ID: "g1", Title: "Graph Neural Networks"},           // same ID
		{ID: "other", Title: "Renamed Copy", DOI: "10.1/G1"}, // same DOI, case-insensitive
		{ID: "", Title: "No Identifier"},                     // no ID
	}
	added, err := s.Add(context.Background(), dupes, "graph study", "sess-2")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0 for duplicates and unidentified papers", added)
	}
	if s.Stats().Papers != 3 {
		t.Errorf("Papers = %d, want 3", s.Stats().Papers)
	}
}

func TestAddEmbedFailureStoresZeroVector(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{failFor: "broken"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	papers := []types.Paper{
		{ID: "ok", Title: "Graph Paper"},
		{ID: "bad", Title: "broken embedding target"},
	}
	added, err := s.Add(context.Background(), papers, "graphs", "sess-1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want both papers kept", added)
	}

	// The zero-vector paper never outranks a real one.
	got, err := s.Search(context.Background(), "graph", 2, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 || got[0].ID != "ok" {
		t.Errorf("top hit = %v, want the successfully embedded paper", got)
	}
}

func TestSearchTypeFilter(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers(), "graph study", "sess-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Search(context.Background(), "graph models", 1, types.TypeConference)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "g2" {
		t.Errorf("got %v, want only the conference paper", got)
	}
}

func TestSearchZeroK(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := s.Search(context.Background(), "anything", 0, "")
	if err != nil || got != nil {
		t.Errorf("Search(k=0) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestSaveAndReopen(t *testing.T) {
	prefix := storePrefix(t)

	s, err := Open(prefix, &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers(), "graph study", "sess-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, suffix := range []string{".index", ".meta.json"} {
		if _, err := os.Stat(prefix + suffix); err != nil {
			t.Fatalf("expected %s after Save: %v", suffix, err)
		}
	}

	reopened, err := Open(prefix, &axisEmbedder{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Stats().Papers != 3 {
		t.Fatalf("reopened Papers = %d, want 3", reopened.Stats().Papers)
	}

	// Provenance survives the reload.
	if ep, ok := reopened.Get("g1"); !ok || ep.SessionID != "sess-1" {
		t.Errorf("reloaded provenance = %+v, want sess-1", ep)
	}

	// DOI dedup must survive the reload.
	added, err := reopened.Add(context.Background(), []types.Paper{
		{ID: "new-id", Title: "Different Title", DOI: "10.1/g1"},
	}, "graph study", "sess-2")
	if err != nil {
		t.Fatalf("Add after reopen: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want DOI duplicate skipped after reload", added)
	}

	got, err := reopened.Search(context.Background(), "protein folding", 1, "")
	if err != nil {
		t.Fatalf("Search after reopen: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("got %v, want the protein paper", got)
	}
}

func TestOpenTornStore(t *testing.T) {
	prefix := storePrefix(t)
	if err := os.WriteFile(prefix+".index", []byte("gob"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(prefix, &axisEmbedder{}); err == nil {
		t.Fatal("expected error for index without sidecar")
	}
}

func TestStats(t *testing.T) {
	s, err := Open(storePrefix(t), &axisEmbedder{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers()[:2], "graph study", "sess-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(context.Background(), testPapers()[2:], "protein folding", "sess-2"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	st := s.Stats()
	if st.Papers != 3 || st.Dimensions != 3 {
		t.Errorf("Stats = %+v, want 3 papers of width 3", st)
	}
	if st.BySource[types.SourceArxiv] != 1 || st.ByType[types.TypeJournal] != 2 {
		t.Errorf("Stats breakdown = %+v", st)
	}
	if st.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2 distinct", st.Sessions)
	}
	if math.Abs(st.MeanRelevance-0.7) > 1e-9 {
		t.Errorf("MeanRelevance = %v, want 0.7", st.MeanRelevance)
	}
	if math.Abs(st.MeanConfidence-0.6) > 1e-9 {
		t.Errorf("MeanConfidence = %v, want 0.6", st.MeanConfidence)
	}
}

func TestNormalize(t *testing.T) {
	vec := []float32{3, 4, 0}
	normalize(vec)
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("norm² = %v, want 1", sum)
	}

	zero := []float32{0, 0, 0}
	normalize(zero)
	for _, v := range zero {
		if v != 0 {
			t.Errorf("zero vector must stay zero, got %v", zero)
		}
	}
}
