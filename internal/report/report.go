// Package report links contest results, roster, feedback and handle sheets
// into a per-student participation report.
package report

import (
	"fmt"
	"log/slog"

	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/table"
)

// Generate validates the four sources and produces the consolidated report
// for one contest event. Inputs are not modified. On error no rows are returned.
func Generate(results, roster, feedback, handles *table.Table, eventNumber int) (*model.Report, error) {
	if eventNumber < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidEventNumber, eventNumber)
	}
	if err := Validate(results, roster, feedback, handles); err != nil {
		return nil, err
	}

	scored, err := scoreResults(results.Clone())
	if err != nil {
		return nil, fmt.Errorf("score results: %w", err)
	}
	members, err := normalizeRoster(roster)
	if err != nil {
		return nil, err
	}

	var stats model.JoinStats
	rows, err := innerJoin(scored, members, &stats)
	if err != nil {
		return nil, fmt.Errorf("join results with roster: %w", err)
	}
	if err := joinFeedback(rows, normalizeFeedback(feedback), &stats); err != nil {
		return nil, fmt.Errorf("join feedback: %w", err)
	}
	if err := joinHandles(rows, normalizeHandles(handles), &stats); err != nil {
		return nil, fmt.Errorf("join handles: %w", err)
	}

	out, err := assemble(eventNumber, rows)
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	slog.Info("generated report",
		"event", eventNumber,
		"rows", len(out),
		"dropped_results", stats.DroppedResults,
		"dropped_roster", stats.DroppedRoster,
		"feedback_matched", stats.FeedbackMatched,
		"handles_matched", stats.HandlesMatched,
	)
	return &model.Report{EventNumber: eventNumber, Rows: out, Stats: stats}, nil
}
