package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
)

var (
	classifyNoPersist bool
	classifyThreshold float64
	classifyJSON      bool
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyNoPersist, "no-persist", false, "do not append PERSIST exchanges to memory")
	classifyCmd.Flags().Float64Var(&classifyThreshold, "threshold", 0, "PERSIST threshold in (0,1) (default: classifier.threshold)")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the decision as JSON")
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>|-",
	Short: "Classify one exchange",
	Long: `Run one exchange through the gate and print the decision.

Arguments are joined with spaces. Use "-" to read the exchange from stdin.

Examples:
  roomgate classify "User: I'm a nurse. Assistant: Thanks for sharing."
  roomgate classify --no-persist --json "User: what are ladybugs?"
  cat exchange.txt | roomgate classify -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func readExchange(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := logging.WithSurface(cmd.Context(), logging.SurfaceCLI)

	text, err := readExchange(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text provided: %w", gate.ErrInvalidInput)
	}

	opts := gate.DefaultOptions()
	opts.AutoPersist = !classifyNoPersist
	if cmd.Flags().Changed("threshold") {
		if err := classifier.ValidateThreshold(classifyThreshold); err != nil {
			return err
		}
		opts.Threshold = classifyThreshold
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	comps, err := a.buildGate(ctx, false)
	if err != nil {
		return fmt.Errorf("initializing gate: %w", err)
	}
	defer func() { _ = comps.Close() }()

	decision, err := comps.gate.Process(ctx, text, opts)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(decision)
	}

	fmt.Fprintf(w, "%s (confidence %.2f)\n", decision.Decision, decision.Confidence)
	if decision.Category != nil {
		fmt.Fprintf(w, "Category: %s\n", *decision.Category)
	}
	if decision.Persisted {
		fmt.Fprintf(w, "Stored as %s in %s\n", decision.EntryID, a.cfg.Store.Path)
	}
	return nil
}

