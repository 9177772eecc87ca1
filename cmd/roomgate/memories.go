package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/roomgate/internal/logging"
	"github.com/fyrsmithlabs/roomgate/internal/memorystore"
)

var (
	memoriesJSON     bool
	memoriesClearYes bool
)

func init() {
	rootCmd.AddCommand(memoriesCmd)
	memoriesCmd.AddCommand(memoriesListCmd)
	memoriesCmd.AddCommand(memoriesClearCmd)
	memoriesListCmd.Flags().BoolVar(&memoriesJSON, "json", false, "print the stored records as JSON")
	memoriesClearCmd.Flags().BoolVar(&memoriesClearYes, "yes", false, "confirm deleting every stored memory")
}

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Inspect or clear the memory store",
}

var memoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored memories in insertion order",
	Args:  cobra.NoArgs,
	RunE:  runMemoriesList,
}

var memoriesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored memory",
	Long: `Delete every stored memory. The store reads as empty afterwards.

Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runMemoriesClear,
}

func runMemoriesList(cmd *cobra.Command, _ []string) error {
	ctx := logging.WithSurface(cmd.Context(), logging.SurfaceCLI)

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.store()
	if err != nil {
		return err
	}
	entries, err := store.ReadAll(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if memoriesJSON {
		if entries == nil {
			entries = []memorystore.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No memories stored.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-13s  %s  %s\n",
			e.Timestamp.Format(time.RFC3339), e.Category, e.ID, oneLine(e.Text, 80))
	}
	fmt.Fprintf(w, "\n%d memories in %s\n", len(entries), store.Path())
	return nil
}

func runMemoriesClear(cmd *cobra.Command, _ []string) error {
	if !memoriesClearYes {
		return errors.New("refusing to clear memories without --yes")
	}
	ctx := logging.WithSurface(cmd.Context(), logging.SurfaceCLI)

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.store()
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
	return nil
}

// oneLine collapses whitespace and truncates to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
