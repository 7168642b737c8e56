// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litscout/pkg/types"
)

var storedCmd = &cobra.Command{
	Use:   "stored [query]",
	Short: "Search previously saved papers by semantic similarity",
	Long: `Stored embeds the query and ranks the papers in the local embedding
store against it, without contacting any external source.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStored,
}

func runStored(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	k, _ := cmd.Flags().GetInt("limit")
	typeFilter, _ := cmd.Flags().GetString("type")
	query := strings.Join(args, " ")

	papers, err := pl.SearchStored(cmd.Context(), query, k, types.PaperType(typeFilter))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No stored papers matched.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-10s  %s\n", "Rank", "ID", "Similarity", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for i, p := range papers {
		title := p.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-10.3f  %s\n", i+1, p.ID, p.SimilarityScore, title)
	}
	return nil
}

func init() {
	storedCmd.Flags().Int("limit", 5, "maximum number of papers")
	storedCmd.Flags().String("type", "", "restrict to a paper type: review, conference, journal")
	storedCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(storedCmd)
}
