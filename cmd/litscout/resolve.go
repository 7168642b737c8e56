// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litscout/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [identifier]",
	Short: "Find an open-access copy of a paper",
	Long: `Resolve takes a DOI, arXiv ID, or URL and finds an open-access
full-text location. DOIs are looked up in Unpaywall first, then OpenAlex.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := buildConfig(cmd)
	r := resolve.New(cfg.Search.Email)

	loc, err := r.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(loc)
	}

	fmt.Printf("%s\n", loc.URL)
	fmt.Fprintf(os.Stderr, "provider: %s", loc.Provider)
	if loc.License != "" {
		fmt.Fprintf(os.Stderr, ", license: %s", loc.License)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

func init() {
	resolveCmd.Flags().Bool("json", false, "output the location as JSON")

	rootCmd.AddCommand(resolveCmd)
}
