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

var similarCmd = &cobra.Command{
	Use:   "similar [paper-id]",
	Short: "Discover new papers similar to a stored one",
	Long: `Similar derives probe queries from the paper's keywords, categories,
and authors, runs each through the federated search, and returns the
best new findings. Papers already kept never reappear.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	k, _ := cmd.Flags().GetInt("limit")
	typeFilter, _ := cmd.Flags().GetString("type")

	papers, err := pl.FindSimilar(cmd.Context(), args[0], k, types.PaperType(typeFilter))
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
		fmt.Println("No similar papers found.")
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
	similarCmd.Flags().Int("limit", 5, "maximum number of similar papers")
	similarCmd.Flags().String("type", "", "restrict to a paper type: review, conference, journal")
	similarCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(similarCmd)
}
