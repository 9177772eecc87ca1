package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/roomgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the classify_exchange tool over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing the classify_exchange tool.

Logs go to stderr. Register with an MCP client, for example:

  {"command": "roomgate", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	comps, err := a.buildGate(ctx, a.cfg.Classifier.Watch)
	if err != nil {
		return fmt.Errorf("initializing gate: %w", err)
	}
	defer func() { _ = comps.Close() }()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "roomgate",
		Version: version,
		Logger:  a.logger,
	}, comps.gate)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
