// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litscout/internal/augment"
	"github.com/pdiddy/litscout/internal/classify"
	"github.com/pdiddy/litscout/internal/dedup"
	"github.com/pdiddy/litscout/internal/embed"
	"github.com/pdiddy/litscout/internal/federate"
	"github.com/pdiddy/litscout/internal/keywords"
	"github.com/pdiddy/litscout/internal/validate"
	"github.com/pdiddy/litscout/pkg/types"
)

const (
	// initialResultCount caps the first search pass.
	initialResultCount = 10

	// secondaryResultCount caps the widened follow-up pass.
	secondaryResultCount = 20

	// maxProbeQueries bounds the probes FindSimilar derives per paper.
	maxProbeQueries = 3
)

// Pipeline runs discovery sessions end to end: search, validate,
// persist, embed, and refine.
type Pipeline struct {
	Engine    *federate.Engine
	Augmenter *augment.Augmenter
	Store     *Store
	Vectors   *embed.Store
	Config    types.PipelineConfig
	Progress  io.Writer
}

// New assembles a Pipeline. Vectors may be nil when no embedder is
// configured; similarity features then report a clear error.
func New(engine *federate.Engine, augmenter *augment.Augmenter, store *Store, vectors *embed.Store, cfg types.PipelineConfig, w io.Writer) *Pipeline {
	if w == nil {
		w = io.Discard
	}
	return &Pipeline{
		Engine:    engine,
		Augmenter: augmenter,
		Store:     store,
		Vectors:   vectors,
		Config:    cfg,
		Progress:  w,
	}
}

// StartSession creates and persists a new session for the query.
func (pl *Pipeline) StartSession(ctx context.Context, query string, filters types.SearchFilters) (Session, error) {
	if strings.TrimSpace(query) == "" {
		return Session{}, fmt.Errorf("query is empty: provide a research topic")
	}

	sess := Session{
		ID:        uuid.NewString()[:8],
		Query:     query,
		Model:     pl.Config.Validation.Model,
		CreatedAt: time.Now().UTC(),
		Filters:   filters,
	}
	if err := pl.Store.SaveSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// InitialSearch runs the discovery loop for the session's query and
// persists the validated papers. Returns at most ten papers, best
// first.
func (pl *Pipeline) InitialSearch(ctx context.Context, sess *Session) ([]types.Paper, error) {
	out, err := pl.Engine.Discover(ctx, sess.Query, sess.Filters, initialResultCount)
	if err != nil {
		return nil, err
	}

	papers := pl.enrich(out.Papers)
	sess.Rounds = out.Rounds
	sess.PaperCount += len(papers)

	if err := pl.Store.SavePapers(ctx, sess.ID, papers); err != nil {
		return nil, err
	}
	if err := pl.Store.SaveSession(ctx, *sess); err != nil {
		return nil, err
	}

	fmt.Fprintf(pl.Progress, "session %s: %d papers after %d rounds (%d duplicates removed)\n",
		sess.ID, len(papers), out.Rounds, out.DupsRemoved)
	return papers, nil
}

// SecondarySearch widens the session with a refined query built from
// the papers kept so far, merges the kept papers with the new
// findings, and re-ranks everything against the original query so
// drift stays bounded. Returns at most twenty papers.
func (pl *Pipeline) SecondarySearch(ctx context.Context, sess *Session, kept []types.Paper) ([]types.Paper, error) {
	refined := sess.Query
	if pl.Augmenter != nil {
		refined = pl.Augmenter.Refine(ctx, sess.Query, kept)
	}
	fmt.Fprintf(pl.Progress, "session %s: refined query %q\n", sess.ID, refined)

	out, err := pl.Engine.Discover(ctx, refined, sess.Filters, secondaryResultCount)
	if err != nil {
		return nil, err
	}

	// The user's selection stays in the set; new findings join it.
	merged := dedup.NewTracker()
	for _, p := range kept {
		merged.Add(p)
	}
	for _, p := range pl.enrich(out.Papers) {
		merged.Add(p)
	}
	papers := merged.Papers()

	// The refined query found them; the original query ranks them.
	sort.SliceStable(papers, func(i, j int) bool {
		return rerankScore(papers[i], sess.Query) > rerankScore(papers[j], sess.Query)
	})
	if len(papers) > secondaryResultCount {
		papers = papers[:secondaryResultCount]
	}

	if refined != sess.Query {
		sess.RefinedQueries = append(sess.RefinedQueries, refined)
	}
	sess.Rounds += out.Rounds
	sess.PaperCount += len(papers)

	if err := pl.Store.SavePapers(ctx, sess.ID, papers); err != nil {
		return nil, err
	}
	if err := pl.Store.SaveSession(ctx, *sess); err != nil {
		return nil, err
	}
	return papers, nil
}

// rerankScore blends the validated relevance with lexical overlap
// against the original query.
func rerankScore(p types.Paper, originalQuery string) float64 {
	overlap := validate.FallbackScore(p, originalQuery).Relevance
	return 0.5*p.RelevanceScore + 0.5*overlap
}

// SavePapers marks papers as user-selected and adds them to the
// embedding store so similarity search can reach them.
func (pl *Pipeline) SavePapers(ctx context.Context, sessionID string, paperIDs []string) error {
	if err := pl.Store.MarkSelected(ctx, sessionID, paperIDs); err != nil {
		return err
	}
	if pl.Vectors == nil {
		return nil
	}

	sess, err := pl.Store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	papers, err := pl.Store.PapersForSession(ctx, sessionID, true)
	if err != nil {
		return err
	}
	added, err := pl.Vectors.Add(ctx, papers, sess.Query, sessionID)
	if err != nil {
		return fmt.Errorf("embedding papers: %w", err)
	}
	if err := pl.Vectors.Save(); err != nil {
		return fmt.Errorf("persisting embeddings: %w", err)
	}
	fmt.Fprintf(pl.Progress, "saved %d papers, %d newly embedded\n", len(paperIDs), added)
	return nil
}

// FindSimilar returns up to k papers similar to the stored paper. It
// derives up to three probe queries from the paper and runs each
// through the discovery engine with a share of k, so fresh results come
// from the live sources. Papers the user already kept, and the paper
// itself, never appear in the results.
func (pl *Pipeline) FindSimilar(ctx context.Context, paperID string, k int, typeFilter types.PaperType) ([]types.Paper, error) {
	if k <= 0 {
		return nil, nil
	}
	seed, err := pl.Store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	probes := probeQueries(seed)
	if len(probes) == 0 {
		return nil, fmt.Errorf("paper %s carries no text to probe with", paperID)
	}
	filters, err := types.NewSearchFilters(types.SearchFilters{PaperTypeFilter: typeFilter})
	if err != nil {
		return nil, err
	}

	seen := dedup.NewTracker()
	seen.Add(seed)
	selected, err := pl.Store.SelectedPapers(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range selected {
		seen.Add(p)
	}

	share := k / len(probes)
	if share < 1 {
		share = 1
	}

	var found []types.Paper
	for _, probe := range probes {
		out, err := pl.Engine.Discover(ctx, probe, filters, share)
		if err != nil {
			return nil, err
		}
		for _, p := range out.Papers {
			if p.ID == paperID {
				continue
			}
			if seen.Add(p) {
				found = append(found, p)
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.ConfidenceScore != b.ConfidenceScore {
			return a.ConfidenceScore > b.ConfidenceScore
		}
		return a.CitationCount > b.CitationCount
	})
	if len(found) > k {
		found = found[:k]
	}
	return found, nil
}

// SearchStored ranks previously saved papers against a free-text query
// using the embedding store.
func (pl *Pipeline) SearchStored(ctx context.Context, query string, k int, typeFilter types.PaperType) ([]types.Paper, error) {
	if pl.Vectors == nil {
		return nil, fmt.Errorf("semantic search requires an embedding store")
	}
	return pl.Vectors.Search(ctx, query, k, typeFilter)
}

// probeQueries derives up to three search probes from a paper: its top
// keywords, its categories, and an author-scoped probe.
func probeQueries(p types.Paper) []string {
	kw := p.Keywords
	if len(kw) == 0 {
		kw = keywords.Extract(p.SearchText(), 5)
	}
	cats := p.Categories
	if len(cats) == 0 {
		cats = keywords.Categorize(p.SearchText())
	}

	var probes []string
	if len(kw) > 0 {
		probes = append(probes, strings.Join(kw, " "))
	}
	if len(cats) > 0 {
		probes = append(probes, strings.Join(cats, " "))
	}
	if len(p.Authors) > 0 {
		scope := p.Authors[0]
		if len(kw) > 0 {
			scope += " " + kw[0]
		}
		probes = append(probes, scope)
	}
	if len(probes) > maxProbeQueries {
		probes = probes[:maxProbeQueries]
	}
	return probes
}

// sessionExport is the YAML document ExportSession writes.
type sessionExport struct {
	Session Session       `yaml:"session"`
	Papers  []types.Paper `yaml:"papers"`
}

// ExportSession writes the session record and its papers as YAML.
func (pl *Pipeline) ExportSession(ctx context.Context, sessionID string, w io.Writer) error {
	sess, err := pl.Store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	papers, err := pl.Store.PapersForSession(ctx, sessionID, false)
	if err != nil {
		return err
	}

	doc := sessionExport{Session: sess, Papers: papers}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding session export: %w", err)
	}
	return enc.Close()
}

// enrich fills keywords, categories, and paper type for papers whose
// sources left them blank.
func (pl *Pipeline) enrich(papers []types.Paper) []types.Paper {
	out := make([]types.Paper, len(papers))
	copy(out, papers)
	for i := range out {
		p := &out[i]
		if len(p.Keywords) == 0 {
			p.Keywords = keywords.Extract(p.SearchText(), 5)
		}
		if len(p.Categories) == 0 {
			p.Categories = keywords.Categorize(p.SearchText())
		}
		if p.PaperType == "" || p.PaperType == types.TypeUnknownPub {
			p.PaperType = classify.PaperType(*p)
		}
	}
	return out
}
