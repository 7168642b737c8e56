// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed persists paper embeddings for similarity search. The
// store keeps two files under one path prefix: <prefix>.index holds the
// gob-encoded vectors and <prefix>.meta.json holds the paper records
// and the ID order matching the vector rows. Writes go through a
// temp-file-and-rename pair so a crash never leaves a torn file.
package embed

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/litscout/internal/classify"
	"github.com/pdiddy/litscout/internal/gemini"
	"github.com/pdiddy/litscout/pkg/types"
)

// EmbeddedPaper is a stored paper plus the provenance of its insertion.
type EmbeddedPaper struct {
	types.Paper
	EmbeddedAt  time.Time `json:"embedded_at"`
	SessionID   string    `json:"session_id"`
	SearchQuery string    `json:"search_query"`
}

// Store is an embedding index over papers. Not safe for concurrent use.
type Store struct {
	embedder gemini.Embedder
	prefix   string

	vectors  [][]float32
	paperIDs []string
	papers   map[string]EmbeddedPaper
	byDOI    map[string]int
}

// metadata is the on-disk sidecar format.
type metadata struct {
	Papers   map[string]EmbeddedPaper `json:"papers"`
	PaperIDs []string                 `json:"paper_ids"`
}

// Open loads the store at the given path prefix, or starts an empty one
// when neither file exists yet. A present index with a missing sidecar
// (or the reverse) is corruption and fails loudly.
func Open(prefix string, embedder gemini.Embedder) (*Store, error) {
	s := &Store{
		embedder: embedder,
		prefix:   prefix,
		papers:   make(map[string]EmbeddedPaper),
		byDOI:    make(map[string]int),
	}

	indexPath := prefix + ".index"
	metaPath := prefix + ".meta.json"
	_, indexErr := os.Stat(indexPath)
	_, metaErr := os.Stat(metaPath)

	switch {
	case os.IsNotExist(indexErr) && os.IsNotExist(metaErr):
		return s, nil
	case os.IsNotExist(indexErr) != os.IsNotExist(metaErr):
		return nil, fmt.Errorf("embedding store at %s is torn: index and sidecar must exist together", prefix)
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&s.vectors); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	if len(meta.PaperIDs) != len(s.vectors) {
		return nil, fmt.Errorf("embedding store at %s is inconsistent: %d ids for %d vectors",
			prefix, len(meta.PaperIDs), len(s.vectors))
	}

	s.paperIDs = meta.PaperIDs
	if meta.Papers != nil {
		s.papers = meta.Papers
	}
	for i, id := range s.paperIDs {
		if p, ok := s.papers[id]; ok && p.DOI != "" {
			s.byDOI[strings.ToLower(p.DOI)] = i
		}
	}
	return s, nil
}

// Add embeds and inserts papers, skipping papers already present by ID
// or DOI, and records the query and session that produced each one. A
// paper whose embedding call fails is stored with a zero vector so its
// metadata survives; it simply never ranks in searches. Returns the
// number of papers inserted.
func (s *Store) Add(ctx context.Context, papers []types.Paper, query, sessionID string) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}

	added := 0
	for _, p := range papers {
		if p.ID == "" {
			continue
		}
		if _, ok := s.papers[p.ID]; ok {
			continue
		}
		if p.DOI != "" {
			if _, ok := s.byDOI[strings.ToLower(p.DOI)]; ok {
				continue
			}
		}

		vec, err := s.embedder.Embed(ctx, embedText(p))
		if err != nil || len(vec) == 0 {
			vec = make([]float32, s.embedder.Dimensions())
		}
		normalize(vec)

		if p.PaperType == "" || p.PaperType == types.TypeUnknownPub {
			p.PaperType = classify.PaperType(p)
		}

		s.vectors = append(s.vectors, vec)
		s.paperIDs = append(s.paperIDs, p.ID)
		s.papers[p.ID] = EmbeddedPaper{
			Paper:       p,
			EmbeddedAt:  time.Now().UTC(),
			SessionID:   sessionID,
			SearchQuery: query,
		}
		if p.DOI != "" {
			s.byDOI[strings.ToLower(p.DOI)] = len(s.paperIDs) - 1
		}
		added++
	}
	return added, nil
}

// embedText concatenates the fields that carry a paper's meaning.
func embedText(p types.Paper) string {
	parts := []string{p.Title, p.Abstract}
	if len(p.Keywords) > 0 {
		parts = append(parts, strings.Join(p.Keywords, " "))
	}
	if len(p.Categories) > 0 {
		parts = append(parts, strings.Join(p.Categories, " "))
	}
	if p.Journal != "" {
		parts = append(parts, p.Journal)
	}
	var kept []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// Save writes both files atomically: each is written to a temp file in
// the same directory and renamed into place, index first.
func (s *Store) Save() error {
	dir := filepath.Dir(s.prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	if err := writeAtomic(s.prefix+".index", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(s.vectors)
	}); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	meta := metadata{Papers: s.papers, PaperIDs: s.paperIDs}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := writeAtomic(s.prefix+".meta.json", func(f *os.File) error {
		_, werr := f.Write(raw)
		return werr
	}); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Search embeds the query and returns the k most similar papers by
// inner product over the normalized vectors. When a type filter is set
// the scan over-fetches three times the requested count before
// filtering, so a sparse type still fills the result list. Each
// returned paper has SimilarityScore populated.
func (s *Store) Search(ctx context.Context, query string, k int, typeFilter types.PaperType) ([]types.Paper, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if k <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	normalize(qvec)

	type hit struct {
		idx int
		sim float64
	}
	hits := make([]hit, 0, len(s.vectors))
	for i, vec := range s.vectors {
		hits = append(hits, hit{idx: i, sim: dot(qvec, vec)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })

	fetch := k
	if typeFilter != "" && typeFilter != types.TypeUnknownPub {
		fetch = k * 3
	}
	if fetch > len(hits) {
		fetch = len(hits)
	}

	var out []types.Paper
	for _, h := range hits[:fetch] {
		ep, ok := s.papers[s.paperIDs[h.idx]]
		if !ok {
			continue
		}
		if typeFilter != "" && typeFilter != types.TypeUnknownPub && ep.PaperType != typeFilter {
			continue
		}
		p := ep.Paper
		p.SimilarityScore = types.Clamp01(h.sim)
		out = append(out, p)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// Get returns a stored paper with its insertion provenance.
func (s *Store) Get(id string) (EmbeddedPaper, bool) {
	p, ok := s.papers[id]
	return p, ok
}

// Stats summarizes the store contents.
type Stats struct {
	Papers         int                       `json:"papers"`
	Dimensions     int                       `json:"dimensions"`
	BySource       map[types.PaperSource]int `json:"by_source"`
	ByType         map[types.PaperType]int   `json:"by_type"`
	MeanRelevance  float64                   `json:"mean_relevance"`
	MeanConfidence float64                   `json:"mean_confidence"`
	Sessions       int                       `json:"sessions"`
}

// Stats reports paper counts by source and type, the vector width,
// score means over finite values, and the number of distinct sessions.
func (s *Store) Stats() Stats {
	st := Stats{
		Papers:   len(s.paperIDs),
		BySource: make(map[types.PaperSource]int),
		ByType:   make(map[types.PaperType]int),
	}
	if len(s.vectors) > 0 {
		st.Dimensions = len(s.vectors[0])
	}

	sessions := make(map[string]bool)
	var relSum, confSum float64
	var relN, confN int
	for _, p := range s.papers {
		st.BySource[p.Source]++
		st.ByType[p.PaperType]++
		if p.SessionID != "" {
			sessions[p.SessionID] = true
		}
		if finite(p.RelevanceScore) {
			relSum += p.RelevanceScore
			relN++
		}
		if finite(p.ConfidenceScore) {
			confSum += p.ConfidenceScore
			confN++
		}
	}
	st.Sessions = len(sessions)
	if relN > 0 {
		st.MeanRelevance = relSum / float64(relN)
	}
	if confN > 0 {
		st.MeanConfidence = confSum / float64(confN)
	}
	return st
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalize scales a vector to unit length in place; the zero vector
// stays zero.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// dot is the inner product of two equal-length vectors; mismatched
// lengths score zero.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
