// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Start a discovery session and run the initial search",
	Long: `Search fans the query out to Google Scholar, Crossref, OpenAlex, and
arXiv, deduplicates the merged results, validates them for relevance, and
refines the query for up to three rounds. The ten best papers are printed
and the session is persisted for later refinement.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}

	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	sess, err := pl.StartSession(ctx, query, filters)
	if err != nil {
		return err
	}
	papers, err := pl.InitialSearch(ctx, &sess)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if err := printPapers(papers, jsonOutput); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nsession %s saved; widen it with: litscout refine %s\n", sess.ID, sess.ID)
	return nil
}

func init() {
	addFilterFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
