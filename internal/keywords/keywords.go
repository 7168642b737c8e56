// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords extracts candidate keywords from paper text and
// assigns coarse subject categories from a fixed vocabulary. It fills
// gaps for sources that return no keyword metadata and feeds the
// similar-paper probe queries.
package keywords

import (
	"sort"
	"strings"
	"unicode"
)

// StopWords is the shared stop-word set used by keyword extraction and
// the query-augmentation fallback.
var StopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "for": true,
	"from": true, "has": true, "have": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "their": true, "this": true, "these": true,
	"to": true, "was": true, "we": true, "were": true, "which": true,
	"with": true, "using": true, "based": true, "can": true, "our": true,
	"paper": true, "study": true, "research": true, "analysis": true,
	"results": true, "method": true, "approach": true, "propose": true,
	"proposed": true, "present": true, "show": true, "new": true,
	"novel": true, "via": true,
}

// categoryVocabulary maps category labels to trigger terms found in
// title or abstract text.
var categoryVocabulary = map[string][]string{
	"machine learning":        {"machine learning", "deep learning", "neural network", "supervised", "unsupervised", "reinforcement learning", "classifier", "regression"},
	"natural language processing": {"nlp", "natural language", "language model", "text mining", "translation", "transformer", "bert", "gpt", "tokenization"},
	"computer vision":         {"computer vision", "image", "object detection", "segmentation", "convolutional", "visual recognition"},
	"biology":                 {"genome", "protein", "cell", "dna", "rna", "organism", "gene expression"},
	"medicine":                {"clinical", "patient", "diagnosis", "treatment", "disease", "medical", "therapeutic"},
	"physics":                 {"quantum", "particle", "relativity", "photon", "thermodynamic"},
	"mathematics":             {"theorem", "proof", "algebra", "topology", "combinatorial", "optimization"},
}

// Extract returns up to max keywords from the text, ranked by
// frequency. Candidates are unigrams and bigrams of non-stop-word
// tokens at least three characters long; bigrams are weighted double so
// multiword terms surface above their parts.
func Extract(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	tokens := Tokenize(text)

	counts := make(map[string]int)
	var prev string
	for _, tok := range tokens {
		if StopWords[tok] || len(tok) < 3 {
			prev = ""
			continue
		}
		counts[tok]++
		if prev != "" {
			counts[prev+" "+tok] += 2
		}
		prev = tok
	}

	type scored struct {
		term  string
		count int
	}
	var ranked []scored
	for term, count := range counts {
		if count < 2 {
			continue
		}
		ranked = append(ranked, scored{term, count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	var out []string
	for _, s := range ranked {
		out = append(out, s.term)
		if len(out) >= max {
			break
		}
	}
	return out
}

// Categorize assigns category labels whose trigger terms appear in the
// text, in deterministic label order.
func Categorize(text string) []string {
	lower := strings.ToLower(text)

	labels := make([]string, 0, len(categoryVocabulary))
	for label := range categoryVocabulary {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var out []string
	for _, label := range labels {
		for _, term := range categoryVocabulary[label] {
			if strings.Contains(lower, term) {
				out = append(out, label)
				break
			}
		}
	}
	return out
}

// Tokenize lowercases text and splits it into alphanumeric word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}
