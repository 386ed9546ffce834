package report

import (
	"regexp"

	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/table"
)

var startersRe = regexp.MustCompile(model.StartersPattern)

// startersPlaceholder names the Starters column family in schema errors.
const startersPlaceholder = "Starters <n>"

// Validate checks that every source carries its required columns. Sources
// are checked in the order results, roster, feedback, handles and the first
// missing column is reported.
func Validate(results, roster, feedback, handles *table.Table) error {
	checks := []struct {
		source  model.Source
		t       *table.Table
		columns []string
	}{
		{model.SourceResults, results, []string{model.ColResultsKey}},
		{model.SourceRoster, roster, []string{model.ColUsername, model.ColEmail}},
		{model.SourceFeedback, feedback, []string{model.ColFeedbackKey}},
		{model.SourceHandles, handles, []string{model.ColHandlesKey}},
	}
	for _, c := range checks {
		for _, col := range c.columns {
			if !c.t.Has(col) {
				return &SchemaError{Source: c.source, Column: col}
			}
		}
		if c.source == model.SourceResults && len(startersColumns(c.t)) == 0 {
			return &SchemaError{Source: c.source, Column: startersPlaceholder}
		}
	}
	return nil
}

// startersColumns returns the indexes of all per-problem columns.
func startersColumns(t *table.Table) []int {
	var idx []int
	for i, c := range t.Columns {
		if startersRe.MatchString(c) {
			idx = append(idx, i)
		}
	}
	return idx
}
