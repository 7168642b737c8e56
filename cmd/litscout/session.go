// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and export discovery sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
	RunE:  runSessionList,
}

func runSessionList(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := pl.Store.ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-20s  %-7s  %-7s  %s\n", "ID", "Created", "Rounds", "Papers", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, s := range sessions {
		query := s.Query
		if len(query) > 40 {
			query = query[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10s  %-20s  %-7d  %-7d  %s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Rounds, s.PaperCount, query)
	}
	return nil
}

var sessionExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session and its papers as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionExport,
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	pl, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return pl.ExportSession(cmd.Context(), args[0], out)
}

func init() {
	sessionExportCmd.Flags().String("output", "", "write the export to a file instead of stdout")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionExportCmd)
	rootCmd.AddCommand(sessionCmd)
}
