package recorder

import (
	"time"

	"SectorSentinel/internal/model"
)

// ValidationEvent records one coverage check.
type ValidationEvent struct {
	CheckedAt   time.Time
	LatestDaily string
	OK          bool
	Gaps        []string
}

// RunSummary is a stored run as listed by RecentRuns.
type RunSummary struct {
	ID         string
	Kind       model.RunKind
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    bool
	Resolved   int
	Missing    int
}

// Recorder persists job history for status reporting and analysis.
type Recorder interface {
	RecordRun(report *model.RunReport) error
	RecordValidation(evt *ValidationEvent) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
