// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	text := strings.Repeat("attention mechanism improves attention mechanism quality. ", 3) +
		"the model uses attention throughout."

	got := Extract(text, 3)
	if len(got) == 0 {
		t.Fatal("expected keywords from repetitive text")
	}
	// The repeated bigram should outrank its parts.
	if got[0] != "attention mechanism" {
		t.Errorf("top keyword = %q, want the bigram", got[0])
	}
}

func TestExtractDropsStopWordsAndRareTerms(t *testing.T) {
	got := Extract("the study of a novel approach with results", 10)
	if len(got) != 0 {
		t.Errorf("stop words and singleton terms should not qualify, got %v", got)
	}
}

func TestExtractZeroMax(t *testing.T) {
	if got := Extract("anything at all", 0); got != nil {
		t.Errorf("Extract with max 0 = %v, want nil", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	text := "graphs graphs networks networks embeddings embeddings"
	a := Extract(text, 5)
	b := Extract(text, 5)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Extract is not deterministic: %v vs %v", a, b)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"nlp and ml",
			"A transformer language model trained with deep learning.",
			[]string{"machine learning", "natural language processing"},
		},
		{
			"medicine",
			"Clinical outcomes for patient cohorts under treatment.",
			[]string{"medicine"},
		},
		{"no match", "An essay about cooking.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.text)
			if !reflect.DeepEqual(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("Categorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("BERT: Pre-training of Deep Bidirectional Transformers")
	want := []string{"bert", "pre", "training", "of", "deep", "bidirectional", "transformers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("the cat and the hat")
	if len(set) != 4 {
		t.Errorf("len = %d, want 4 distinct tokens", len(set))
	}
	if !set["cat"] || !set["hat"] {
		t.Errorf("missing expected tokens: %v", set)
	}
}
