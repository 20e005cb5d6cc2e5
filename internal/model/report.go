package model

import (
	"time"

	"github.com/google/uuid"
)

// RunKind names the job that produced a report.
type RunKind string

const (
	RunDaily        RunKind = "daily"
	RunIntraday     RunKind = "intraday"
	RunBaseline     RunKind = "baseline"
	RunTrailingHigh RunKind = "ltm_high"
	RunBackfill     RunKind = "backfill"
	RunRepair       RunKind = "repair"
)

// OutcomeStatus is how a single symbol was resolved.
type OutcomeStatus string

const (
	OutcomePrimary    OutcomeStatus = "primary"    // first provider in the symbol's order
	OutcomeFallback   OutcomeStatus = "fallback"   // a later provider in the order
	OutcomeHistorical OutcomeStatus = "historical" // synthesized from historical bars
	OutcomePatched    OutcomeStatus = "patched"    // degraded substitute from persisted snapshots
	OutcomeMissing    OutcomeStatus = "missing"
)

// SymbolOutcome records the resolution of one symbol within a run.
type SymbolOutcome struct {
	Symbol   string
	Status   OutcomeStatus
	Provider string
	Date     string
}

// RunReport collects per-symbol outcomes of one job invocation.
type RunReport struct {
	ID         string
	Kind       RunKind
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    bool
	Outcomes   []SymbolOutcome
}

// NewRunReport starts a report with a fresh run ID.
func NewRunReport(kind RunKind, target string, startedAt time.Time) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		StartedAt: startedAt,
	}
}

// Add appends an outcome.
func (r *RunReport) Add(symbol string, status OutcomeStatus, provider, date string) {
	r.Outcomes = append(r.Outcomes, SymbolOutcome{Symbol: symbol, Status: status, Provider: provider, Date: date})
}

// Counts tallies outcomes by status.
func (r *RunReport) Counts() map[OutcomeStatus]int {
	counts := make(map[OutcomeStatus]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Resolved is the number of outcomes that produced data.
func (r *RunReport) Resolved() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != OutcomeMissing {
			n++
		}
	}
	return n
}

// MissingSymbols lists symbols that could not be resolved.
func (r *RunReport) MissingSymbols() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == OutcomeMissing {
			out = append(out, o.Symbol)
		}
	}
	return out
}
