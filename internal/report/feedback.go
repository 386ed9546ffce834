package report

import (
	"fmt"

	"github.com/pavelanni/contestreport/internal/model"
)

// FeedbackMessage builds the per-student message for one joined row. It
// reports the solved count before it is collapsed to a score.
func FeedbackMessage(eventNumber int, row model.JoinedRow) string {
	handle := model.NoHandle
	if row.Handle != nil && *row.Handle != "" {
		handle = *row.Handle
	}
	if row.Reason == nil {
		return fmt.Sprintf("CODECHEF-START%d ATTENDED, SOLVED : %s (%s)",
			eventNumber, FormatSolved(row.RawSolved), handle)
	}
	return fmt.Sprintf("CODECHEF-START%d DID NOT PARTICIPATE, REASON - %s (%s)",
		eventNumber, *row.Reason, handle)
}
