package model

import (
	"context"
	"time"
)

// Column names expected in the uploaded sources. Matching is exact and case-sensitive.
const (
	ColResultsKey   = "Roll No"
	ColBatch        = "Batch"
	ColUsername     = "username"
	ColEmail        = "email"
	ColFeedbackKey  = "Roll Number"
	ColReason       = "Reason"
	ColHandlesKey   = "roll_number"
	ColHandle       = "CODECHEF"
	ColTimestamp    = "Timestamp"
	StartersPattern = `^Starters\s*\d+$`

	// NotParticipated is the sentinel the contest export writes for absent students.
	NotParticipated = "Not Participated"
	// NoHandle replaces a missing contest handle in feedback messages.
	NoHandle = "N/A"
	// PassThreshold is the minimum number of solved problems for Score 1.
	PassThreshold = 2
)

// Output column headers, in report order.
const (
	OutEmail      = "Email"
	OutRollNumber = "RollNumber"
	OutScore      = "Score"
	OutFeedback   = "Feedback"
)

// ReportColumns is the header row of every exported report.
var ReportColumns = []string{OutEmail, OutRollNumber, OutScore, OutFeedback}

// Source names a report input.
type Source string

const (
	SourceResults  Source = "results"
	SourceRoster   Source = "roster"
	SourceFeedback Source = "feedback"
	SourceHandles  Source = "handles"
	SourceReport   Source = "report"
)

// ResultsRecord is one contest result row after scoring.
type ResultsRecord struct {
	Key       string
	RawSolved float64
}

// RosterRecord is one membership row.
type RosterRecord struct {
	Key      string
	Username string
	Email    string
}

// FeedbackRecord is one absence/feedback row. HasReason is false when the
// source had no Reason column or the cell was empty.
type FeedbackRecord struct {
	Key       string
	Reason    string
	HasReason bool
}

// HandleRecord maps a student to a contest handle.
type HandleRecord struct {
	Key    string
	Handle string
}

// JoinedRow is a results row linked to its roster entry and, when present,
// its feedback reason and contest handle.
type JoinedRow struct {
	Email     string
	Key       string
	RawSolved float64
	Reason    *string
	Handle    *string
}

// ReportRow is one line of the final report.
type ReportRow struct {
	Email      string `json:"email"`
	RollNumber string `json:"roll_number"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
}

// JoinStats records row counts through the join pipeline.
type JoinStats struct {
	Results         int `json:"results"`
	Roster          int `json:"roster"`
	Matched         int `json:"matched"`
	DroppedResults  int `json:"dropped_results"`
	DroppedRoster   int `json:"dropped_roster"`
	FeedbackMatched int `json:"feedback_matched"`
	HandlesMatched  int `json:"handles_matched"`
}

// Report is the consolidated output for one contest event.
type Report struct {
	EventNumber int         `json:"event_number"`
	Rows        []ReportRow `json:"rows"`
	Stats       JoinStats   `json:"stats"`
}

// ExportRecord tracks a report written to disk and offered for download.
type ExportRecord struct {
	Token       string
	Filename    string
	Path        string
	EventNumber int
	RowCount    int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ServerConfig holds runtime parameters for the web front end.
type ServerConfig struct {
	OutDir    string        // directory for exported workbooks
	Prefix    string        // export filename prefix
	ExportTTL time.Duration // how long a download link stays valid
	BasePath  string        // URL prefix for sub-path deployments (e.g. "/reports")
	MaxUpload int64         // multipart size limit in bytes
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
