// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package federate runs the discovery loop: fan the query out to all
// configured sources concurrently, merge and deduplicate the results,
// pre-rank them into a fixed candidate pool, and validate candidates
// from that pool over quality-assurance rounds until enough papers
// pass the threshold or the round budget runs out.
package federate

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/litscout/internal/dedup"
	"github.com/pdiddy/litscout/internal/keywords"
	"github.com/pdiddy/litscout/internal/source"
	"github.com/pdiddy/litscout/pkg/types"
)

// overFetchBuffer pads the per-source allocation so dedup losses do not
// starve the candidate pool.
const overFetchBuffer = 2

// Scorer validates a batch of papers against a query and returns them
// with relevance scores applied.
type Scorer interface {
	Batch(ctx context.Context, papers []types.Paper, query string) []types.Paper
}

// Output holds the discovered papers and per-run statistics.
type Output struct {
	Papers       []types.Paper
	Rounds       int
	Candidates   int
	DupsRemoved  int
	SourcesOK    []types.PaperSource
	SourceErrors []string
}

// Engine coordinates sources and validation.
type Engine struct {
	Sources   []source.Source
	Scorer    Scorer
	Threshold float64
	MaxRounds int

	// SourceTimeout bounds each source call.
	SourceTimeout time.Duration

	// Progress receives human-readable status lines.
	Progress io.Writer
}

// New builds an Engine with defaults filled in for zero-valued knobs.
func New(sources []source.Source, scorer Scorer, cfg types.PipelineConfig) *Engine {
	threshold := cfg.Validation.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	rounds := cfg.Validation.MaxRounds
	if rounds <= 0 {
		rounds = 3
	}
	timeout := cfg.Search.SourceTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Engine{
		Sources:       sources,
		Scorer:        scorer,
		Threshold:     threshold,
		MaxRounds:     rounds,
		SourceTimeout: timeout,
		Progress:      io.Discard,
	}
}

// Discover fans the query out once, builds a pre-ranked candidate pool
// capped at maxResults, and validates candidates from the pool over up
// to MaxRounds rounds. Papers at or above the threshold are selected
// first; remaining slots are topped up from the best of the rest. A
// blank query, an empty source list, or a non-positive result count
// all return an empty output without contacting any source.
func (e *Engine) Discover(ctx context.Context, query string, filters types.SearchFilters, maxResults int) (Output, error) {
	out := Output{}
	if strings.TrimSpace(query) == "" || len(e.Sources) == 0 || maxResults <= 0 {
		return out, nil
	}

	perSource := maxResults / len(e.Sources)
	if perSource < 1 {
		perSource = 1
	}
	perSource += overFetchBuffer

	fmt.Fprintf(e.Progress, "searching %d sources for %q (up to %d each)\n",
		len(e.Sources), query, perSource)

	results, ok, errs := e.fanOut(ctx, query, filters, perSource)
	out.SourcesOK = ok
	out.SourceErrors = errs

	pool := dedup.Dedup(results)
	out.DupsRemoved = len(results) - len(pool)

	sort.SliceStable(pool, func(i, j int) bool {
		return PreRankScore(pool[i], query) > PreRankScore(pool[j], query)
	})
	if len(pool) > maxResults {
		pool = pool[:maxResults]
	}
	out.Candidates = len(pool)

	var validated []types.Paper
	high := 0
	next := 0
	for round := 1; round <= e.MaxRounds && next < len(pool); round++ {
		out.Rounds = round

		pick := roundPickSize(round, maxResults-high)
		if next+pick > len(pool) {
			pick = len(pool) - next
		}
		batch := pool[next : next+pick]
		next += pick

		scored := batch
		if e.Scorer != nil {
			scored = e.Scorer.Batch(ctx, batch, query)
		}
		for _, p := range scored {
			validated = append(validated, p)
			if p.RelevanceScore >= e.Threshold {
				high++
			}
		}
		fmt.Fprintf(e.Progress, "round %d: validated %d candidates, %d/%d above threshold\n",
			round, len(batch), high, maxResults)

		if high >= maxResults {
			break
		}
	}

	out.Papers = finalSelection(validated, e.Threshold, maxResults)
	return out, nil
}

// finalSelection takes every high-relevance paper, tops up from the
// remaining validated papers by relevance when short of target, caps at
// target, and applies the final quality sort.
func finalSelection(validated []types.Paper, threshold float64, target int) []types.Paper {
	var highs, lows []types.Paper
	for _, p := range validated {
		if p.RelevanceScore >= threshold {
			highs = append(highs, p)
		} else {
			lows = append(lows, p)
		}
	}

	selected := highs
	if len(selected) < target {
		sort.SliceStable(lows, func(i, j int) bool {
			return lows[i].RelevanceScore > lows[j].RelevanceScore
		})
		room := target - len(selected)
		if room > len(lows) {
			room = len(lows)
		}
		selected = append(selected, lows[:room]...)
	}

	sortByQuality(selected)
	if len(selected) > target {
		selected = selected[:target]
	}
	return selected
}

// fanOut queries all sources concurrently, each under its own timeout.
// Failures degrade to warnings so one slow or broken source cannot sink
// the run.
func (e *Engine) fanOut(ctx context.Context, query string, filters types.SearchFilters, max int) ([]types.Paper, []types.PaperSource, []string) {
	type sourceResult struct {
		papers []types.Paper
		err    error
		name   types.PaperSource
	}

	ch := make(chan sourceResult, len(e.Sources))
	var wg sync.WaitGroup

	for _, s := range e.Sources {
		wg.Add(1)
		go func(s source.Source) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, e.SourceTimeout)
			defer cancel()
			papers, err := s.Search(sctx, query, filters, max)
			ch <- sourceResult{papers: papers, err: err, name: s.Name()}
		}(s)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Paper
	var ok []types.PaperSource
	var errs []string
	for sr := range ch {
		if sr.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", sr.name, sr.err))
			fmt.Fprintf(e.Progress, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		ok = append(ok, sr.name)
		all = append(all, sr.papers...)
	}
	return all, ok, errs
}

// roundPickSize widens the first round aggressively and tops up later
// rounds more conservatively.
func roundPickSize(round, needed int) int {
	if needed < 1 {
		needed = 1
	}
	if round == 1 {
		return needed * 2
	}
	return needed + 5
}

// PreRankScore orders candidates before validation so the most
// promising papers reach the rate-limited validator first. Citation
// volume contributes 0.3 (saturating at 1000 citations), title overlap
// with the query 0.5, and recency a flat 0.2 for papers from 2020 on.
func PreRankScore(p types.Paper, query string) float64 {
	citation := float64(p.CitationCount) / 1000
	if citation > 1 {
		citation = 1
	}

	queryTokens := keywords.TokenSet(query)
	titleTokens := keywords.TokenSet(p.Title)
	inter := 0
	for tok := range queryTokens {
		if titleTokens[tok] {
			inter++
		}
	}
	denom := len(queryTokens)
	if denom < 1 {
		denom = 1
	}
	titleOverlap := float64(inter) / float64(denom)

	score := 0.3*citation + 0.5*titleOverlap
	if p.Year() >= 2020 {
		score += 0.2
	}
	return score
}

// sortByQuality orders papers by relevance, then confidence, then
// citation count, all descending. The sort is stable so equally scored
// papers keep their discovery order.
func sortByQuality(papers []types.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		a, b := papers[i], papers[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		return a.CitationCount > b.CitationCount
	})
}
