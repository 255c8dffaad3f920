package harness

import (
	"fmt"
	"path/filepath"

	"github.com/surveyeval/qscore/internal/dataset"
)

// FilterCases returns the cases whose ID matches at least one glob pattern.
// No patterns selects every case.
func FilterCases(cases []dataset.Case, patterns []string) ([]dataset.Case, error) {
	if len(patterns) == 0 {
		return cases, nil
	}

	var matched []dataset.Case
	for _, c := range cases {
		ok, err := matchesAny(c.ID, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func matchesAny(id string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, id)
		if err != nil {
			return false, fmt.Errorf("invalid case filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
