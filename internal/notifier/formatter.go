package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"SectorSentinel/internal/baseline"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/recorder"
)

// FormatRunReport summarizes one job run.
func FormatRunReport(r *model.RunReport) string {
	if r.Skipped {
		return fmt.Sprintf("⏭ <b>%s</b> %s already exists, skipped", r.Kind, html.EscapeString(r.Target))
	}

	var b strings.Builder
	icon := "✅"
	missing := r.MissingSymbols()
	if len(missing) > 0 {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n\n", icon, r.Kind, html.EscapeString(r.Target)))
	b.WriteString(fmt.Sprintf("Resolved: %d/%d\n", r.Resolved(), len(r.Outcomes)))

	counts := r.Counts()
	var parts []string
	for _, s := range []model.OutcomeStatus{model.OutcomePrimary, model.OutcomeFallback, model.OutcomeHistorical, model.OutcomePatched} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
		}
	}
	if len(parts) > 0 {
		b.WriteString("   " + strings.Join(parts, " | ") + "\n")
	}
	if len(missing) > 0 {
		b.WriteString(fmt.Sprintf("Missing: %s\n", html.EscapeString(strings.Join(missing, ", "))))
	}
	if !r.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Took %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second)))
	}
	return b.String()
}

// FormatSectorSummary lists each sector's average move for a snapshot in
// configured order, followed by the day's best and worst symbol.
func FormatSectorSummary(snap *model.DailySnapshot, sectors []model.Sector) string {
	var b strings.Builder
	title := snap.Date
	if snap.TimeLabel != "" {
		title += " " + snap.TimeLabel
	}
	b.WriteString(fmt.Sprintf("📊 <b>SMB SaaS sectors</b> | %s\n\n", html.EscapeString(title)))
	for _, sec := range sectors {
		agg, ok := snap.Sectors[sec.ID]
		if !ok {
			b.WriteString(fmt.Sprintf("%s %s: n/a\n", sec.Icon, html.EscapeString(sec.Name)))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %+.2f%% (%d/%d)\n",
			sec.Icon, html.EscapeString(sec.Name), agg.AvgDailyPct, agg.TickersTracked, agg.TickersTotal))
	}

	if len(snap.Tickers) > 0 {
		symbols := make([]string, 0, len(snap.Tickers))
		for sym := range snap.Tickers {
			symbols = append(symbols, sym)
		}
		sort.Slice(symbols, func(i, j int) bool {
			pi, pj := snap.Tickers[symbols[i]].DailyPct, snap.Tickers[symbols[j]].DailyPct
			if pi != pj {
				return pi > pj
			}
			return symbols[i] < symbols[j]
		})
		best, worst := symbols[0], symbols[len(symbols)-1]
		b.WriteString(fmt.Sprintf("\n🟢 %s %+.2f%% | 🔴 %s %+.2f%%\n",
			html.EscapeString(best), snap.Tickers[best].DailyPct,
			html.EscapeString(worst), snap.Tickers[worst].DailyPct))
	}
	return b.String()
}

// FormatCoverage reports a coverage check.
func FormatCoverage(r *baseline.CoverageReport) string {
	if r.OK() {
		return fmt.Sprintf("✅ <b>Coverage OK</b>: %d symbols in baseline, LTM high and %s", r.Symbols, r.LatestDaily)
	}
	var b strings.Builder
	b.WriteString("❌ <b>Coverage gaps</b>\n\n")
	for _, g := range r.Gaps {
		b.WriteString("• " + html.EscapeString(g.String()) + "\n")
	}
	return b.String()
}

// FormatRecentRuns lists stored runs, newest first.
func FormatRecentRuns(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		status := fmt.Sprintf("%d ok, %d missing", r.Resolved, r.Missing)
		if r.Skipped {
			status = "skipped"
		}
		b.WriteString(fmt.Sprintf("%s %s %s: %s\n",
			r.StartedAt.Format("01-02 15:04"), r.Kind, html.EscapeString(r.Target), status))
	}
	return b.String()
}
