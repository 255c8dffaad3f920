package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/surveyeval/qscore/internal/baseline"
)

var compareOutputFormat string

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <base.json> <current.json>",
		Short: "Compare two eval outcome files",
		Long: `Compare a baseline eval outcome with a newer one, metric by metric.

Each aggregate metric is reported with its baseline and current value, the
delta, and whether the change is an improvement. Error metrics (the _mae
family) improve when they fall; every other metric improves when it rises.
When both runs scored the same documents, a paired bootstrap marks changes
whose confidence interval excludes zero as significant.`,
		Args: cobra.ExactArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table or json")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	if compareOutputFormat != "table" && compareOutputFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareOutputFormat)
	}

	base, err := baseline.LoadOutcome(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	current, err := baseline.LoadOutcome(args[1])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[1], err)
	}

	cmp := baseline.Compare(base, current)
	out := cmd.OutOrStdout()

	if compareOutputFormat == "json" {
		data, err := json.MarshalIndent(cmp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	return printComparisonTable(out, args[0], args[1], cmp)
}
