// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litscout/internal/augment"
	"github.com/pdiddy/litscout/internal/embed"
	"github.com/pdiddy/litscout/internal/federate"
	"github.com/pdiddy/litscout/internal/gemini"
	"github.com/pdiddy/litscout/internal/pipeline"
	"github.com/pdiddy/litscout/internal/secrets"
	"github.com/pdiddy/litscout/internal/source"
	"github.com/pdiddy/litscout/internal/validate"
	"github.com/pdiddy/litscout/pkg/types"
)

// buildConfig assembles the pipeline configuration from the config
// file, environment, and loaded secrets.
func buildConfig(cmd *cobra.Command) types.PipelineConfig {
	viper.SetDefault("search.enable_scholar", true)
	viper.SetDefault("search.enable_crossref", true)
	viper.SetDefault("search.enable_openalex", true)
	viper.SetDefault("search.enable_arxiv", true)

	var cfg types.PipelineConfig
	cfg.Search.MaxResults = viper.GetInt("search.max_results")
	cfg.Search.Email = viper.GetString("search.email")
	cfg.Search.UserAgent = viper.GetString("search.user_agent")
	cfg.Search.Timeout = viper.GetDuration("search.timeout")
	cfg.Search.SourceTimeout = viper.GetDuration("search.source_timeout")
	cfg.Search.EnableScholar = viper.GetBool("search.enable_scholar")
	cfg.Search.EnableCrossref = viper.GetBool("search.enable_crossref")
	cfg.Search.EnableOpenAlex = viper.GetBool("search.enable_openalex")
	cfg.Search.EnableArxiv = viper.GetBool("search.enable_arxiv")
	cfg.Search.SerpAPIKey = viper.GetString("search.serpapi_key")

	cfg.Validation.Model = viper.GetString("validation.model")
	cfg.Validation.Concurrency = viper.GetInt("validation.concurrency")
	cfg.Validation.PacingDelay = viper.GetDuration("validation.pacing_delay")
	cfg.Validation.Threshold = viper.GetFloat64("validation.threshold")
	cfg.Validation.MaxRounds = viper.GetInt("validation.max_rounds")

	cfg.Embedding.Model = viper.GetString("embedding.model")
	cfg.Embedding.Dimensions = viper.GetInt("embedding.dimensions")
	cfg.Embedding.PathPrefix = viper.GetString("embedding.path_prefix")

	cfg.Storage.DataDir = viper.GetString("storage.data_dir")
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
		cfg.Embedding.PathPrefix = ""
	}

	if cfg.Search.SerpAPIKey == "" {
		cfg.Search.SerpAPIKey = secrets.Resolve(loadedSecrets, secrets.EnvSerpAPIKey)
	}
	if key := secrets.Resolve(loadedSecrets, secrets.EnvGeminiKey); key != "" {
		cfg.Validation.APIKey = key
		cfg.Embedding.APIKey = key
	}
	if email := secrets.Resolve(loadedSecrets, secrets.EnvEmail); email != "" {
		cfg.Search.Email = email
	}

	cfg.Defaults()
	return cfg
}

// buildPipeline wires the sources, validator, augmenter, stores, and
// engine into a runnable Pipeline. The returned cleanup closes the
// database.
func buildPipeline(cmd *cobra.Command) (*pipeline.Pipeline, func(), error) {
	cfg := buildConfig(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	var sources []source.Source
	if cfg.Search.EnableScholar && cfg.Search.SerpAPIKey != "" {
		sources = append(sources, &source.Scholar{Client: client, Config: cfg.Search})
	}
	if cfg.Search.EnableCrossref {
		sources = append(sources, &source.Crossref{Client: client, Config: cfg.Search})
	}
	if cfg.Search.EnableOpenAlex {
		sources = append(sources, &source.OpenAlex{Client: client, Config: cfg.Search})
	}
	if cfg.Search.EnableArxiv {
		sources = append(sources, &source.Arxiv{Client: client, Config: cfg.Search})
	}

	var llm gemini.TextGenerator
	var embedder gemini.Embedder
	if cfg.Validation.APIKey != "" {
		gc, err := gemini.NewClient(ctx, cfg.Validation, cfg.Embedding)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing Gemini client: %w", err)
		}
		llm = gc
		embedder = gc
	} else {
		fmt.Fprintln(os.Stderr, "warning: no GEMINI_API_KEY; relevance scoring uses the lexical fallback")
	}

	validator := validate.New(llm, cfg.Validation)
	augmenter := augment.New(llm)

	engine := federate.New(sources, validator, cfg)
	engine.Progress = os.Stderr

	store, err := pipeline.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, err
	}

	var vectors *embed.Store
	if embedder != nil {
		vectors, err = embed.Open(cfg.Embedding.PathPrefix, embedder)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	pl := pipeline.New(engine, augmenter, store, vectors, cfg, os.Stderr)
	return pl, func() { store.Close() }, nil
}

// filtersFromFlags builds validated search filters from command flags.
func filtersFromFlags(cmd *cobra.Command) (types.SearchFilters, error) {
	yearStart, _ := cmd.Flags().GetInt("year-start")
	yearEnd, _ := cmd.Flags().GetInt("year-end")
	minCitations, _ := cmd.Flags().GetInt("min-citations")
	maxCitations, _ := cmd.Flags().GetInt("max-citations")
	includePreprints, _ := cmd.Flags().GetBool("preprints")
	keywords, _ := cmd.Flags().GetStringSlice("require-keyword")
	exclude, _ := cmd.Flags().GetStringSlice("exclude-keyword")
	journals, _ := cmd.Flags().GetStringSlice("journal")
	authors, _ := cmd.Flags().GetStringSlice("author")
	paperType, _ := cmd.Flags().GetString("type")

	return types.NewSearchFilters(types.SearchFilters{
		YearStart:           yearStart,
		YearEnd:             yearEnd,
		MinCitations:        minCitations,
		MaxCitations:        maxCitations,
		IncludePreprints:    includePreprints,
		KeywordRequirements: keywords,
		ExcludeKeywords:     exclude,
		JournalFilter:       journals,
		AuthorFilter:        authors,
		PaperTypeFilter:     types.PaperType(paperType),
	})
}

// addFilterFlags registers the shared search-filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year-start", 0, "earliest publication year")
	cmd.Flags().Int("year-end", 0, "latest publication year")
	cmd.Flags().Int("min-citations", 0, "minimum citation count")
	cmd.Flags().Int("max-citations", 0, "maximum citation count (0 = unlimited)")
	cmd.Flags().Bool("preprints", true, "include preprints")
	cmd.Flags().StringSlice("require-keyword", nil, "keyword that must appear in title or abstract (repeatable)")
	cmd.Flags().StringSlice("exclude-keyword", nil, "keyword that must not appear (repeatable)")
	cmd.Flags().StringSlice("journal", nil, "restrict to a venue (substring match, repeatable)")
	cmd.Flags().StringSlice("author", nil, "restrict to an author (substring match, repeatable)")
	cmd.Flags().String("type", "", "restrict to a paper type: review, conference, journal")
}

// printPapers writes results as a table or JSON.
func printPapers(papers []types.Paper, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-5s  %-5s  %-6s  %-10s  %s\n",
		"Rank", "ID", "Score", "Year", "Cites", "Source", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, p := range papers {
		title := p.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-5.2f  %-5s  %-6d  %-10s  %s\n",
			i+1, p.ID, p.RelevanceScore, p.PublicationDate, p.CitationCount, p.Source, title)
	}
	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}
