// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save [session-id] [paper-id...]",
	Short: "Keep papers from a session and embed them",
	Long: `Save marks the given papers as kept and adds them to the local
embedding store, making them reachable by similarity search.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sessionID, paperIDs := args[0], args[1:]
	if err := pl.SavePapers(cmd.Context(), sessionID, paperIDs); err != nil {
		return err
	}
	fmt.Printf("saved %d paper(s) from session %s\n", len(paperIDs), sessionID)
	return nil
}

func init() {
	rootCmd.AddCommand(saveCmd)
}
