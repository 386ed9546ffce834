package report

import (
	"strings"

	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/table"
)

// NormalizeKey canonicalizes a student identifier: surrounding whitespace
// is trimmed and the result lowercased.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// RosterKey derives the student key from a "<key>-<name>" username.
func RosterKey(username string) string {
	key, _, _ := strings.Cut(strings.TrimSpace(username), "-")
	return NormalizeKey(key)
}

func normalizeRoster(t *table.Table) ([]model.RosterRecord, error) {
	ui := t.Index(model.ColUsername)
	ei := t.Index(model.ColEmail)
	if ei < 0 {
		return nil, &RequiredFieldError{Source: model.SourceRoster, Field: model.ColEmail}
	}
	out := make([]model.RosterRecord, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, model.RosterRecord{
			Key:      RosterKey(row[ui]),
			Username: row[ui],
			Email:    strings.TrimSpace(row[ei]),
		})
	}
	return out, nil
}

func normalizeFeedback(t *table.Table) []model.FeedbackRecord {
	ki := t.Index(model.ColFeedbackKey)
	ri := t.Index(model.ColReason)
	out := make([]model.FeedbackRecord, 0, t.Len())
	for _, row := range t.Rows {
		rec := model.FeedbackRecord{Key: NormalizeKey(row[ki])}
		if ri >= 0 {
			rec.Reason = strings.TrimSpace(row[ri])
			rec.HasReason = rec.Reason != ""
		}
		out = append(out, rec)
	}
	return out
}

func normalizeHandles(t *table.Table) []model.HandleRecord {
	ki := t.Index(model.ColHandlesKey)
	hi := t.Index(model.ColHandle)
	out := make([]model.HandleRecord, 0, t.Len())
	for _, row := range t.Rows {
		rec := model.HandleRecord{Key: NormalizeKey(row[ki])}
		if hi >= 0 {
			rec.Handle = strings.TrimSpace(row[hi])
		}
		out = append(out, rec)
	}
	return out
}
