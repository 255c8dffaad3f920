package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/surveyeval/qscore/internal/dataset"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset>",
		Short: "Check an eval dataset without calling a model",
		Long: `Validate an eval dataset against its JSON Schema, decode every case and
check that the referenced documents exist.

Every problem found is listed. Exit status is 1 when the dataset has problems.`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommandE,
	}
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	problems, err := dataset.Validate(path)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds *dataset.Dataset
	if len(problems) == 0 {
		ds, err = dataset.Load(path, nil)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		problems = missingDocuments(ds)
	}

	if len(problems) > 0 {
		fmt.Fprintf(out, "✗ %s\n", path)
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return &TestFailureError{Message: fmt.Sprintf("dataset %s has %d problem(s)", path, len(problems))}
	}

	fmt.Fprintf(out, "✓ %s\n", path)
	fmt.Fprintf(out, "  name:       %s\n", ds.Name)
	fmt.Fprintf(out, "  cases:      %d\n", len(ds.Cases))
	fmt.Fprintf(out, "  attributes: %s\n", strings.Join(ds.Attributes.Keys(), ", "))
	if len(ds.Thresholds) > 0 {
		fmt.Fprintf(out, "  thresholds: %d override(s)\n", len(ds.Thresholds))
	}
	return nil
}

func missingDocuments(ds *dataset.Dataset) []string {
	var problems []string
	for _, c := range ds.Cases {
		if _, err := os.Stat(c.Document); errors.Is(err, os.ErrNotExist) {
			problems = append(problems, fmt.Sprintf("case %s: document %s not found", c.ID, c.Document))
		}
	}
	return problems
}
