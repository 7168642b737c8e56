// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials. Environment variables
// take precedence; a directory of plain-text files provides a fallback
// for local development. Each file in the directory represents one
// secret: the filename is the key name and the file contents (trimmed)
// are the value.
//
// Supported key files: gemini-api-key, serpapi-key, openai-api-key, research-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names recognized by Resolve.
const (
	EnvGeminiKey  = "GEMINI_API_KEY"
	EnvSerpAPIKey = "SERPAPI_KEY"
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvEmail      = "RESEARCH_EMAIL"
	EnvAdminMode  = "ADMIN_MODE"
)

// envToFile maps environment variable names to their .secrets/ file names.
var envToFile = map[string]string{
	EnvGeminiKey:  "gemini-api-key",
	EnvSerpAPIKey: "serpapi-key",
	EnvOpenAIKey:  "openai-api-key",
	EnvEmail:      "research-email",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Resolve returns the value for an environment variable name, preferring
// the process environment over the loaded file map. Returns "" when the
// key is set nowhere.
func Resolve(loaded map[string]string, envName string) string {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v
	}
	if file, ok := envToFile[envName]; ok {
		return loaded[file]
	}
	return ""
}
