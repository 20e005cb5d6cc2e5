package baseline

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/store"
)

// Gap is a persisted document that is absent or lacks configured symbols.
type Gap struct {
	Document string
	Absent   bool
	Missing  []string
}

func (g Gap) String() string {
	if g.Absent {
		return g.Document + " missing"
	}
	return fmt.Sprintf("%s missing tickers: %s", g.Document, strings.Join(g.Missing, ", "))
}

// CoverageReport is the result of a universe coverage check.
type CoverageReport struct {
	Symbols     int
	LatestDaily string
	Gaps        []Gap
}

// OK reports whether every document covers every symbol.
func (r *CoverageReport) OK() bool { return len(r.Gaps) == 0 }

// Validate checks that baseline.json, ltm_high.json and the latest plain daily
// snapshot all contain every configured symbol. Unreadable documents are
// errors; absent ones are gaps.
func Validate(u *model.Universe, s *store.Store) (*CoverageReport, error) {
	report := &CoverageReport{Symbols: len(u.Instruments)}

	base, err := s.LoadBaseline()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		report.Gaps = append(report.Gaps, Gap{Document: "baseline.json", Absent: true})
	case err != nil:
		return nil, fmt.Errorf("load baseline: %w", err)
	default:
		report.check("baseline.json", model.Missing(u, base.Tickers))
	}

	high, err := s.LoadTrailingHigh()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		report.Gaps = append(report.Gaps, Gap{Document: "ltm_high.json", Absent: true})
	case err != nil:
		return nil, fmt.Errorf("load trailing high: %w", err)
	default:
		report.check("ltm_high.json", model.Missing(u, high.Tickers))
	}

	dates, err := s.DailyDates()
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		report.Gaps = append(report.Gaps, Gap{Document: "daily snapshot", Absent: true})
		return report, nil
	}
	report.LatestDaily = dates[len(dates)-1]
	snap, err := s.LoadDaily(report.LatestDaily)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", report.LatestDaily, err)
	}
	report.check(report.LatestDaily+".json", model.Missing(u, snap.Tickers))
	return report, nil
}

func (r *CoverageReport) check(doc string, missing []string) {
	if len(missing) > 0 {
		r.Gaps = append(r.Gaps, Gap{Document: doc, Missing: missing})
	}
}
