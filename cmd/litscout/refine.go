// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var refineCmd = &cobra.Command{
	Use:   "refine [session-id]",
	Short: "Widen a session with a refined query",
	Long: `Refine builds a follow-up query from the session's best papers so far
(via the LLM when available, else from their most frequent terms), searches
again, and re-ranks the new findings against the original query. Up to
twenty papers are added to the session.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

func runRefine(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	sess, err := pl.Store.GetSession(ctx, args[0])
	if err != nil {
		return err
	}
	kept, err := pl.Store.PapersForSession(ctx, sess.ID, false)
	if err != nil {
		return err
	}

	papers, err := pl.SecondarySearch(ctx, &sess, kept)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return printPapers(papers, jsonOutput)
}

func init() {
	refineCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(refineCmd)
}
