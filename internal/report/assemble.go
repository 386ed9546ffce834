package report

import (
	"strings"

	"github.com/pavelanni/contestreport/internal/model"
)

// assemble projects joined rows onto the report columns, keeping join order.
func assemble(eventNumber int, rows []model.JoinedRow) ([]model.ReportRow, error) {
	seen := make(map[string]bool, len(rows))
	out := make([]model.ReportRow, 0, len(rows))
	for _, r := range rows {
		if seen[r.Email] {
			return nil, &JoinIntegrityError{Source: model.SourceReport, Key: r.Email, Reason: "duplicate email"}
		}
		seen[r.Email] = true
		out = append(out, model.ReportRow{
			Email:      r.Email,
			RollNumber: strings.ToUpper(r.Key),
			Score:      Score(r.RawSolved),
			Feedback:   FeedbackMessage(eventNumber, r),
		})
	}
	return out, nil
}
