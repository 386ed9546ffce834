package report

import (
	"log/slog"

	"github.com/pavelanni/contestreport/internal/model"
)

// indexUnique builds a hash index over keys. Empty keys are skipped since they
// never match; a repeated non-empty key is a data error.
func indexUnique(source model.Source, n int, key func(int) string) (map[string]int, error) {
	idx := make(map[string]int, n)
	for i := 0; i < n; i++ {
		k := key(i)
		if k == "" {
			continue
		}
		if _, dup := idx[k]; dup {
			return nil, &JoinIntegrityError{Source: source, Key: k, Reason: reasonDuplicateKey}
		}
		idx[k] = i
	}
	return idx, nil
}

// innerJoin links each results row to its roster entry. Rows missing from
// either side are dropped. Output order follows results.
func innerJoin(results []model.ResultsRecord, roster []model.RosterRecord, stats *model.JoinStats) ([]model.JoinedRow, error) {
	if _, err := indexUnique(model.SourceResults, len(results), func(i int) string { return results[i].Key }); err != nil {
		return nil, err
	}
	byKey, err := indexUnique(model.SourceRoster, len(roster), func(i int) string { return roster[i].Key })
	if err != nil {
		return nil, err
	}

	stats.Results = len(results)
	stats.Roster = len(roster)

	var out []model.JoinedRow
	for _, r := range results {
		i, ok := byKey[r.Key]
		if !ok || r.Key == "" {
			slog.Debug("results row has no roster entry", "key", r.Key)
			continue
		}
		out = append(out, model.JoinedRow{
			Email:     roster[i].Email,
			Key:       r.Key,
			RawSolved: r.RawSolved,
		})
	}
	stats.Matched = len(out)
	stats.DroppedResults = len(results) - len(out)
	stats.DroppedRoster = len(roster) - len(out)

	if len(out) == 0 {
		return nil, &JoinIntegrityError{Source: model.SourceRoster, Reason: "no student appears in both results and roster"}
	}
	return out, nil
}

// joinFeedback attaches absence reasons. Every input row survives.
func joinFeedback(rows []model.JoinedRow, feedback []model.FeedbackRecord, stats *model.JoinStats) error {
	byKey, err := indexUnique(model.SourceFeedback, len(feedback), func(i int) string { return feedback[i].Key })
	if err != nil {
		return err
	}
	for i := range rows {
		j, ok := byKey[rows[i].Key]
		if !ok {
			continue
		}
		stats.FeedbackMatched++
		if feedback[j].HasReason {
			reason := feedback[j].Reason
			rows[i].Reason = &reason
		}
	}
	return nil
}

// joinHandles attaches contest handles. Every input row survives.
func joinHandles(rows []model.JoinedRow, handles []model.HandleRecord, stats *model.JoinStats) error {
	byKey, err := indexUnique(model.SourceHandles, len(handles), func(i int) string { return handles[i].Key })
	if err != nil {
		return err
	}
	for i := range rows {
		j, ok := byKey[rows[i].Key]
		if !ok {
			continue
		}
		stats.HandlesMatched++
		if h := handles[j].Handle; h != "" {
			rows[i].Handle = &h
		}
	}
	return nil
}
