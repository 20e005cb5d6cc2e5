package calculator

import "SectorSentinel/internal/model"

// SectorAverages recomputes every sector aggregate from the records present.
// Absent members are excluded; sectors with no present member are omitted.
func SectorAverages(u *model.Universe, tickers map[string]model.TickerRecord) map[string]model.SectorAggregate {
	out := make(map[string]model.SectorAggregate, len(u.Sectors))
	for _, s := range u.Sectors {
		var pcts []float64
		for _, t := range s.Tickers {
			if rec, ok := tickers[t]; ok {
				pcts = append(pcts, rec.DailyPct)
			}
		}
		if len(pcts) == 0 {
			continue
		}
		out[s.ID] = model.SectorAggregate{
			Name:           s.Name,
			AvgDailyPct:    Mean(pcts),
			TickersTracked: len(pcts),
			TickersTotal:   len(s.Tickers),
		}
	}
	return out
}

// SectorHighs averages member LTM percentages and records the member with the
// largest one. Ties keep the earlier member in sector order.
func SectorHighs(u *model.Universe, tickers map[string]model.HighEntry) map[string]model.SectorHigh {
	out := make(map[string]model.SectorHigh, len(u.Sectors))
	for _, s := range u.Sectors {
		var (
			pcts []float64
			peak string
		)
		for _, t := range s.Tickers {
			e, ok := tickers[t]
			if !ok {
				continue
			}
			pcts = append(pcts, e.LTMHighPct)
			if peak == "" || e.LTMHighPct > tickers[peak].LTMHighPct {
				peak = t
			}
		}
		if len(pcts) == 0 {
			continue
		}
		out[s.ID] = model.SectorHigh{
			Name:           s.Name,
			LTMHighPct:     Mean(pcts),
			HighDate:       tickers[peak].HighDate,
			PeakTicker:     peak,
			TickersTracked: len(pcts),
			TickersTotal:   len(s.Tickers),
		}
	}
	return out
}
