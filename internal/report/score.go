package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/table"
)

// replaceNotParticipated rewrites every sentinel cell in t to "0", across all columns.
func replaceNotParticipated(t *table.Table) {
	for _, row := range t.Rows {
		for i, c := range row {
			if strings.TrimSpace(c) == model.NotParticipated {
				row[i] = "0"
			}
		}
	}
}

// scoreResults sums the Starters columns of every row. The table is modified
// in place, so callers pass a copy.
func scoreResults(t *table.Table) ([]model.ResultsRecord, error) {
	replaceNotParticipated(t)

	ki := t.Index(model.ColResultsKey)
	cols := startersColumns(t)
	out := make([]model.ResultsRecord, 0, t.Len())
	for r, row := range t.Rows {
		var solved float64
		for _, ci := range cols {
			cell := strings.TrimSpace(row[ci])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
				err = strconv.ErrSyntax
			}
			if err != nil {
				return nil, &ProcessingError{
					Source: model.SourceResults,
					Row:    t.Line(r),
					Column: t.Columns[ci],
					Err:    fmt.Errorf("not a number: %q", cell),
				}
			}
			solved += v
		}
		out = append(out, model.ResultsRecord{Key: NormalizeKey(row[ki]), RawSolved: solved})
	}
	return out, nil
}

// Score collapses a solved count to the published pass/fail score.
func Score(rawSolved float64) int {
	if rawSolved >= model.PassThreshold {
		return 1
	}
	return 0
}

// FormatSolved renders a solved count without trailing zeros.
func FormatSolved(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
