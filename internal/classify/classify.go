// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a publication type (review, conference, or
// journal) from keyword rules over title, venue, and abstract. The
// vocabularies are English; non-English venues tend to fall through to
// the journal default.
package classify

import (
	"strings"

	"github.com/pdiddy/litscout/pkg/types"
)

var reviewTerms = []string{
	"review", "survey", "meta-analysis", "systematic review",
	"literature review", "overview", "synthesis", "state-of-the-art",
	"comprehensive review", "critical review", "scoping review",
}

var conferenceTerms = []string{
	"proceedings", "conference", "workshop", "symposium", "congress",
	"icml", "nips", "neurips", "aaai", "ijcai", "cvpr", "iccv", "eccv",
	"sigkdd", "acl", "emnlp", "naacl", "interspeech", "sigir", "www",
}

var journalTerms = []string{
	"journal of", "nature", "science", "cell", "plos",
	"ieee transactions", "acm transactions", "annals of", "letters",
	"review of", "bulletin",
}

// PaperType classifies a paper from its title, venue, and abstract.
// A single review-vocabulary hit wins outright; otherwise conference
// and journal hits are counted, with the venue name as a final
// conference tiebreaker and journal as the default.
func PaperType(p types.Paper) types.PaperType {
	text := strings.ToLower(p.Title + " " + p.Journal + " " + p.Abstract)

	for _, term := range reviewTerms {
		if strings.Contains(text, term) {
			return types.TypeReview
		}
	}

	conferenceHits := countHits(text, conferenceTerms)
	journalHits := countHits(text, journalTerms)

	switch {
	case conferenceHits > journalHits:
		return types.TypeConference
	case journalHits > 0:
		return types.TypeJournal
	}

	venue := strings.ToLower(p.Journal)
	for _, term := range []string{"conference", "proceedings", "workshop"} {
		if strings.Contains(venue, term) {
			return types.TypeConference
		}
	}
	return types.TypeJournal
}

func countHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return hits
}
