// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline ties the discovery stages together: it runs sessions
// end to end and persists papers and session records in SQLite.
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litscout/pkg/types"
)

const dbFile = "litscout.db"

// Session is one discovery run: the original query, the refinements
// tried, and bookkeeping for the papers it found.
type Session struct {
	ID             string               `json:"session_id" yaml:"session_id"`
	Query          string               `json:"query" yaml:"query"`
	RefinedQueries []string             `json:"refined_queries,omitempty" yaml:"refined_queries,omitempty"`
	Model          string               `json:"model" yaml:"model"`
	CreatedAt      time.Time            `json:"created_at" yaml:"created_at"`
	Rounds         int                  `json:"rounds" yaml:"rounds"`
	PaperCount     int                  `json:"paper_count" yaml:"paper_count"`
	Filters        types.SearchFilters  `json:"filters" yaml:"filters"`
}

// Store manages the pipeline SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dataDir/litscout.db and
// bootstraps the schema.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// NewMemoryStore opens an in-memory database, for tests.
func NewMemoryStore() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty
	// in-memory database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_sessions (
			session_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			refined_queries TEXT,
			model TEXT,
			created_at TEXT,
			rounds INTEGER DEFAULT 0,
			paper_count INTEGER DEFAULT 0,
			filters TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT NOT NULL,
			session_id TEXT NOT NULL REFERENCES search_sessions(session_id),
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT,
			publication_date TEXT,
			journal TEXT,
			citation_count INTEGER DEFAULT 0,
			url TEXT,
			doi TEXT,
			keywords TEXT,
			categories TEXT,
			source TEXT,
			relevance_score REAL DEFAULT 0,
			confidence_score REAL DEFAULT 0,
			similarity_score REAL DEFAULT 0,
			paper_type TEXT,
			reasoning TEXT,
			key_matches TEXT,
			concerns TEXT,
			selected INTEGER DEFAULT 0,
			PRIMARY KEY (id, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_relevance ON papers(relevance_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_session ON papers(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_selected ON papers(selected)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveSession upserts a session record.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	refinedJSON, _ := json.Marshal(sess.RefinedQueries)
	filtersJSON, _ := json.Marshal(sess.Filters)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_sessions (session_id, query, refined_queries, model, created_at, rounds, paper_count, filters)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			query=excluded.query, refined_queries=excluded.refined_queries,
			model=excluded.model, rounds=excluded.rounds,
			paper_count=excluded.paper_count, filters=excluded.filters`,
		sess.ID, sess.Query, string(refinedJSON), sess.Model,
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.Rounds, sess.PaperCount, string(filtersJSON),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	var refinedJSON, filtersJSON, createdAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, query, refined_queries, model, created_at, rounds, paper_count, filters
		 FROM search_sessions WHERE session_id = ?`, id,
	).Scan(&sess.ID, &sess.Query, &refinedJSON, &sess.Model, &createdAt, &sess.Rounds, &sess.PaperCount, &filtersJSON)
	if err == sql.ErrNoRows {
		return Session{}, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	if refinedJSON.Valid && refinedJSON.String != "" {
		json.Unmarshal([]byte(refinedJSON.String), &sess.RefinedQueries)
	}
	if filtersJSON.Valid && filtersJSON.String != "" {
		json.Unmarshal([]byte(filtersJSON.String), &sess.Filters)
	}
	if createdAt.Valid {
		sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, query, refined_queries, model, created_at, rounds, paper_count, filters
		 FROM search_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var refinedJSON, filtersJSON, createdAt sql.NullString
		if err := rows.Scan(&sess.ID, &sess.Query, &refinedJSON, &sess.Model, &createdAt,
			&sess.Rounds, &sess.PaperCount, &filtersJSON); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if refinedJSON.Valid && refinedJSON.String != "" {
			json.Unmarshal([]byte(refinedJSON.String), &sess.RefinedQueries)
		}
		if filtersJSON.Valid && filtersJSON.String != "" {
			json.Unmarshal([]byte(filtersJSON.String), &sess.Filters)
		}
		if createdAt.Valid {
			sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SavePapers upserts papers for a session in one transaction.
func (s *Store) SavePapers(ctx context.Context, sessionID string, papers []types.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, session_id, title, authors, abstract, publication_date, journal,
			citation_count, url, doi, keywords, categories, source, relevance_score,
			confidence_score, similarity_score, paper_type, reasoning, key_matches, concerns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id, session_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			publication_date=excluded.publication_date, journal=excluded.journal,
			citation_count=excluded.citation_count, url=excluded.url, doi=excluded.doi,
			keywords=excluded.keywords, categories=excluded.categories, source=excluded.source,
			relevance_score=excluded.relevance_score, confidence_score=excluded.confidence_score,
			similarity_score=excluded.similarity_score, paper_type=excluded.paper_type,
			reasoning=excluded.reasoning, key_matches=excluded.key_matches, concerns=excluded.concerns`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range papers {
		authorsJSON, _ := json.Marshal(p.Authors)
		keywordsJSON, _ := json.Marshal(p.Keywords)
		categoriesJSON, _ := json.Marshal(p.Categories)
		matchesJSON, _ := json.Marshal(p.KeyMatches)
		concernsJSON, _ := json.Marshal(p.Concerns)

		_, err := stmt.ExecContext(ctx,
			p.ID, sessionID, p.Title, string(authorsJSON), p.Abstract, p.PublicationDate,
			p.Journal, p.CitationCount, p.URL, p.DOI, string(keywordsJSON), string(categoriesJSON),
			string(p.Source), p.RelevanceScore, p.ConfidenceScore, p.SimilarityScore,
			string(p.PaperType), p.Reasoning, string(matchesJSON), string(concernsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// MarkSelected flags papers the user chose to keep.
func (s *Store) MarkSelected(ctx context.Context, sessionID string, paperIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range paperIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE papers SET selected = 1 WHERE id = ? AND session_id = ?`, id, sessionID)
		if err != nil {
			return fmt.Errorf("marking paper %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("paper %s not found in session %s", id, sessionID)
		}
	}
	return tx.Commit()
}

// PapersForSession returns a session's papers ordered by relevance,
// best first. When selectedOnly is set, only papers the user kept come
// back.
func (s *Store) PapersForSession(ctx context.Context, sessionID string, selectedOnly bool) ([]types.Paper, error) {
	q := `SELECT id, title, authors, abstract, publication_date, journal, citation_count,
			url, doi, keywords, categories, source, relevance_score, confidence_score,
			similarity_score, paper_type, reasoning, key_matches, concerns
		 FROM papers WHERE session_id = ?`
	if selectedOnly {
		q += ` AND selected = 1`
	}
	q += ` ORDER BY relevance_score DESC, confidence_score DESC, citation_count DESC`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// SelectedPapers returns every paper the user has kept, across all
// sessions, best first.
func (s *Store) SelectedPapers(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, abstract, publication_date, journal, citation_count,
			url, doi, keywords, categories, source, relevance_score, confidence_score,
			similarity_score, paper_type, reasoning, key_matches, concerns
		 FROM papers WHERE selected = 1
		 ORDER BY relevance_score DESC, confidence_score DESC, citation_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying selected papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// GetPaper returns a stored paper by ID. When the paper was found in
// several sessions the best-scored row wins.
func (s *Store) GetPaper(ctx context.Context, id string) (types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, abstract, publication_date, journal, citation_count,
			url, doi, keywords, categories, source, relevance_score, confidence_score,
			similarity_score, paper_type, reasoning, key_matches, concerns
		 FROM papers WHERE id = ?
		 ORDER BY relevance_score DESC, confidence_score DESC LIMIT 1`, id)
	if err != nil {
		return types.Paper{}, fmt.Errorf("querying paper: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return types.Paper{}, err
		}
		return types.Paper{}, fmt.Errorf("paper %s not found", id)
	}
	return scanPaper(rows)
}

func scanPaper(rows *sql.Rows) (types.Paper, error) {
	var p types.Paper
	var authorsJSON, keywordsJSON, categoriesJSON, matchesJSON, concernsJSON sql.NullString
	var source, paperType sql.NullString

	err := rows.Scan(&p.ID, &p.Title, &authorsJSON, &p.Abstract, &p.PublicationDate,
		&p.Journal, &p.CitationCount, &p.URL, &p.DOI, &keywordsJSON, &categoriesJSON,
		&source, &p.RelevanceScore, &p.ConfidenceScore, &p.SimilarityScore,
		&paperType, &p.Reasoning, &matchesJSON, &concernsJSON)
	if err != nil {
		return types.Paper{}, fmt.Errorf("scanning paper: %w", err)
	}

	for _, col := range []struct {
		raw sql.NullString
		dst *[]string
	}{
		{authorsJSON, &p.Authors},
		{keywordsJSON, &p.Keywords},
		{categoriesJSON, &p.Categories},
		{matchesJSON, &p.KeyMatches},
		{concernsJSON, &p.Concerns},
	} {
		if col.raw.Valid && col.raw.String != "" {
			json.Unmarshal([]byte(col.raw.String), col.dst)
		}
	}
	p.Source = types.PaperSource(source.String)
	p.PaperType = types.PaperType(paperType.String)
	return p, nil
}

// SourceCounts reports how many stored papers came from each source.
func (s *Store) SourceCounts(ctx context.Context) (map[types.PaperSource]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM papers GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting sources: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.PaperSource]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.PaperSource(src)] = n
	}
	return counts, rows.Err()
}
