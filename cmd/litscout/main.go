// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litscout CLI: iterative
// academic literature discovery across Google Scholar, Crossref,
// OpenAlex, and arXiv with LLM relevance validation.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litscout/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the litscout CLI.
var rootCmd = &cobra.Command{
	Use:   "litscout",
	Short: "Iterative academic literature discovery",
	Long: `litscout searches Google Scholar, Crossref, OpenAlex, and arXiv in
parallel, validates candidates for relevance with an LLM, and refines the
query over multiple rounds until enough high-quality papers are found.

Sessions are persisted in SQLite; saved papers enter a local embedding
store for similarity search.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litscout.yaml or ~/.config/litscout/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for the SQLite database and embedding store (default: data)")
}

func initConfig() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litscout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litscout"))
		}
	}

	viper.SetEnvPrefix("LITSCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
