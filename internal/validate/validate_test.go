// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/litscout/pkg/types"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func testConfig() types.ValidationConfig {
	return types.ValidationConfig{
		Model:       "test-model",
		Concurrency: 3,
		PacingDelay: time.Millisecond,
		Threshold:   0.5,
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
		ok    bool
	}{
		{"bare float", "0.8", 0.8, true},
		{"padded", "  0.35\n", 0.35, true},
		{"embedded in prose", "I would rate this paper 0.72 out of 1.0.", 0.72, true},
		{"integer", "1", 1, true},
		{"clamped high", "7.5", 1, true},
		{"no number", "not a number at all", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseScore(tt.reply)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseScore(%q) = (%v, %v), want (%v, %v)", tt.reply, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValidateUsesModelScore(t *testing.T) {
	llm := &fakeLLM{reply: "0.85"}
	v := New(llm, testConfig())

	paper := types.Paper{Title: "Attention Is All You Need", Abstract: "transformer architecture"}
	rs := v.Validate(context.Background(), paper, "transformer attention")

	if rs.Relevance != 0.85 {
		t.Errorf("Relevance = %v, want 0.85", rs.Relevance)
	}
	if llm.calls != 1 {
		t.Errorf("LLM calls = %d, want 1", llm.calls)
	}
	if len(rs.Concerns) != 0 {
		t.Errorf("high score should carry no concerns, got %v", rs.Concerns)
	}
	if len(rs.KeyMatches) == 0 {
		t.Error("expected key matches for overlapping query terms")
	}
}

func TestValidateFallsBackOnError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	v := New(llm, testConfig())

	paper := types.Paper{Title: "Neural Machine Translation", Abstract: "neural networks for translation"}
	rs := v.Validate(context.Background(), paper, "neural translation")

	want := FallbackScore(paper, "neural translation")
	if rs.Relevance != want.Relevance {
		t.Errorf("Relevance = %v, want fallback %v", rs.Relevance, want.Relevance)
	}
	if !strings.Contains(rs.Reasoning, "fallback") {
		t.Errorf("Reasoning should identify the fallback path, got %q", rs.Reasoning)
	}
}

func TestValidateFallsBackOnUnparseableReply(t *testing.T) {
	llm := &fakeLLM{reply: "this paper is quite relevant"}
	v := New(llm, testConfig())

	paper := types.Paper{Title: "Graph Embeddings"}
	rs := v.Validate(context.Background(), paper, "graph embeddings")

	want := FallbackScore(paper, "graph embeddings")
	if rs.Relevance != want.Relevance {
		t.Errorf("Relevance = %v, want fallback %v", rs.Relevance, want.Relevance)
	}
}

func TestValidateNilLLM(t *testing.T) {
	v := New(nil, testConfig())
	rs := v.Validate(context.Background(), types.Paper{Title: "Anything"}, "anything")
	if rs.Relevance < 0 || rs.Relevance > 1 {
		t.Errorf("score out of range: %v", rs.Relevance)
	}
}

func TestFallbackScoreDeterministic(t *testing.T) {
	paper := types.Paper{
		Title:         "Deep Learning for Protein Folding",
		Abstract:      "We apply deep neural networks to predict protein structure.",
		Keywords:      []string{"deep learning", "protein"},
		CitationCount: 250,
	}
	a := FallbackScore(paper, "deep learning protein structure")
	b := FallbackScore(paper, "deep learning protein structure")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("fallback is not deterministic: %+v vs %+v", a, b)
	}
}

func TestFallbackScoreFormula(t *testing.T) {
	// Title matches all 2 query tokens, abstract none, keywords none.
	// base = 0.5*1.0 = 0.5; one ML term ("attention") adds 0.1;
	// 500 citations add 0.1 (capped). final = 0.7.
	paper := types.Paper{
		Title:         "Sparse Attention Kernels",
		CitationCount: 500,
	}
	rs := FallbackScore(paper, "sparse attention")
	if rs.Relevance < 0.69 || rs.Relevance > 0.71 {
		t.Errorf("Relevance = %v, want ~0.70", rs.Relevance)
	}
	if rs.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want 0.7 with title matches present", rs.Confidence)
	}
	if len(rs.Concerns) != 0 {
		t.Errorf("score above threshold should carry no concerns, got %v", rs.Concerns)
	}
}

func TestFallbackRescuesWeakMatches(t *testing.T) {
	// An ML term plus a small citation boost lands between 0.1 and 0.4,
	// which the rescue rule lifts to 0.4.
	paper := types.Paper{Title: "Adventures With a Transformer Toy", CitationCount: 50}
	rs := FallbackScore(paper, "medieval pottery techniques")
	if rs.Relevance != 0.4 {
		t.Errorf("Relevance = %v, want rescued 0.4", rs.Relevance)
	}
	if rs.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4 with no query matches", rs.Confidence)
	}
	if len(rs.Concerns) == 0 {
		t.Error("sub-threshold score should carry a concern")
	}
}

func TestFallbackNoOverlapStaysLow(t *testing.T) {
	paper := types.Paper{Title: "Medieval Pottery Firing"}
	rs := FallbackScore(paper, "quantum error correction")
	if rs.Relevance > 0.1 {
		t.Errorf("Relevance = %v, want <= 0.1 with zero overlap and no boosts", rs.Relevance)
	}
	if len(rs.Concerns) == 0 {
		t.Error("low score should carry a concern")
	}
}

func TestFallbackEmptyQuery(t *testing.T) {
	rs := FallbackScore(types.Paper{Title: "Some Paper"}, "")
	if rs.Relevance < 0 || rs.Relevance > 1 {
		t.Errorf("score out of range for empty query: %v", rs.Relevance)
	}
}

func TestKeyMatchesCapped(t *testing.T) {
	paper := types.Paper{Title: "one two three four five six seven"}
	rs := FallbackScore(paper, "one two three four five six seven")
	if len(rs.KeyMatches) != 5 {
		t.Errorf("KeyMatches length = %d, want capped at 5", len(rs.KeyMatches))
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	llm := &fakeLLM{reply: "0.9"}
	v := New(llm, testConfig())

	papers := []types.Paper{
		{ID: "a", Title: "Alpha Neural Networks"},
		{ID: "b", Title: "Beta Neural Networks"},
		{ID: "c", Title: "Gamma Neural Networks"},
		{ID: "d", Title: "Delta Neural Networks"},
	}
	out := v.Batch(context.Background(), papers, "neural networks")

	if len(out) != len(papers) {
		t.Fatalf("len = %d, want %d", len(out), len(papers))
	}
	for i := range papers {
		if out[i].ID != papers[i].ID {
			t.Errorf("position %d: got %q, want %q", i, out[i].ID, papers[i].ID)
		}
		if out[i].RelevanceScore != 0.9 {
			t.Errorf("paper %q RelevanceScore = %v, want 0.9", out[i].ID, out[i].RelevanceScore)
		}
	}
	if papers[0].RelevanceScore != 0 {
		t.Error("Batch must not mutate its input slice")
	}
}

func TestBatchEmpty(t *testing.T) {
	v := New(nil, testConfig())
	out := v.Batch(context.Background(), nil, "anything")
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}
