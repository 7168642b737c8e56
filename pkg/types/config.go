// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litscout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the federated search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of papers to return (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Per-source enable flags.
	EnableScholar  bool `json:"enable_scholar" yaml:"enable_scholar"`
	EnableCrossref bool `json:"enable_crossref" yaml:"enable_crossref"`
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`
	EnableArxiv    bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// SerpAPIKey authenticates the Google Scholar adapter. When empty
	// the adapter returns no results without erroring.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// Email is sent in politeness headers to Crossref and OpenAlex
	// (default "research@example.com").
	Email string `json:"email" yaml:"email"`

	// SourceTimeout bounds each source's fan-out worker (default 45s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`
}

// ValidationConfig holds settings for LLM relevance validation.
type ValidationConfig struct {
	// Model is the Gemini model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the Gemini API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Concurrency is the number of concurrent validation workers
	// (default 3). Each worker waits PacingDelay before every call so
	// the aggregate stays under ~10 requests/minute.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// PacingDelay is the mandatory pre-call sleep per worker (default 7s).
	PacingDelay time.Duration `json:"pacing_delay" yaml:"pacing_delay"`

	// Threshold is the relevance score at which a paper counts as
	// high-quality (default 0.5).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MaxRounds caps the quality-assurance loop (default 3).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
}

// EmbeddingConfig holds settings for embedding generation and the
// vector store.
type EmbeddingConfig struct {
	// Model is the embedding model identifier (default "gemini-embedding-001").
	Model string `json:"model" yaml:"model"`

	// APIKey is the Gemini API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Dimensions is the embedding vector size (default 768).
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	// PathPrefix locates the vector store pair: <prefix>.index and
	// <prefix>.meta.json (default "data/papers").
	PathPrefix string `json:"path_prefix" yaml:"path_prefix"`
}

// StorageConfig holds settings for relational session persistence.
type StorageConfig struct {
	// DataDir is the directory holding the SQLite database and the
	// vector store files (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search     SearchConfig     `json:"search" yaml:"search"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
}

// Defaults fills unset fields with working values.
func (c *PipelineConfig) Defaults() {
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 30 * time.Second
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = "litscout/0.1"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.Search.Email == "" {
		c.Search.Email = "research@example.com"
	}
	if c.Search.SourceTimeout == 0 {
		c.Search.SourceTimeout = 45 * time.Second
	}
	if c.Validation.Model == "" {
		c.Validation.Model = "gemini-2.5-flash"
	}
	if c.Validation.Concurrency <= 0 {
		c.Validation.Concurrency = 3
	}
	if c.Validation.PacingDelay == 0 {
		c.Validation.PacingDelay = 7 * time.Second
	}
	if c.Validation.Threshold == 0 {
		c.Validation.Threshold = 0.5
	}
	if c.Validation.MaxRounds <= 0 {
		c.Validation.MaxRounds = 3
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "gemini-embedding-001"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Embedding.PathPrefix == "" {
		c.Embedding.PathPrefix = c.Storage.DataDir + "/papers"
	}
}
