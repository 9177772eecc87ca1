// Roomgate decides which conversation exchanges are worth remembering.
//
// It classifies a user/assistant exchange as FLUSH (trivial, discard) or
// PERSIST (keep), tags PERSIST exchanges with a category and appends them
// to a JSON memory document. The gate is served over HTTP and MCP and can
// be driven directly from the command line.
//
// Usage:
//
//	# Serve POST /classify on 127.0.0.1:5000
//	roomgate serve
//
//	# Serve the classify_exchange tool over MCP stdio
//	roomgate mcp
//
//	# Classify one exchange
//	roomgate classify "User: my dad died yesterday"
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the YAML config file; empty uses ~/.config/roomgate/config.yaml.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "roomgate",
	Short: "Triviality gate for conversational memory",
	Long: `roomgate classifies conversation exchanges as FLUSH or PERSIST and
keeps the PERSIST ones in a long-term memory document.

Configuration is read from ~/.config/roomgate/config.yaml and
ROOMGATE_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/roomgate/config.yaml)")
}
