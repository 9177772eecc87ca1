package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "roomgate by Fyrsmith Labs\n")
		fmt.Fprintf(w, "Version:    %s\n", version)
		fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
		fmt.Fprintf(w, "Build Date: %s\n", buildDate)
	},
}
