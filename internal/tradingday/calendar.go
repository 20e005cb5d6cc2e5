// Package tradingday answers whether the exchanges listing the universe trade
// on a given calendar date.
package tradingday

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// suffixMIC maps Yahoo-style exchange suffixes to ISO 10383 MIC codes.
// Unsuffixed symbols trade in New York.
var suffixMIC = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".MI": "xmil",
	".ST": "xsto",
	".CO": "xcse",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".SA": "bvmf",
	".KS": "xkrx",
}

const defaultMIC = "xnys"

// MIC returns the exchange code for symbol.
func MIC(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if mic, ok := suffixMIC[strings.ToUpper(symbol[i:])]; ok {
			return mic
		}
	}
	return defaultMIC
}

// Calendar is one exchange's holiday calendar. A nil cal means the library has
// no calendar for the exchange and only weekends are closed.
type Calendar struct {
	MIC string
	cal *calendar.Calendar
	loc *time.Location
}

// ForMIC loads the calendar for mic, falling back to New York and then to a
// weekday-only calendar.
func ForMIC(mic string) *Calendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar(defaultMIC)
	}
	if cal == nil {
		return &Calendar{MIC: mic, loc: time.UTC}
	}
	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{MIC: mic, cal: cal, loc: loc}
}

// ForSymbol loads the calendar of the exchange listing symbol.
func ForSymbol(symbol string) *Calendar { return ForMIC(MIC(symbol)) }

// IsTradingDay reports whether the exchange is open on the calendar date of d.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	y, m, day := d.Date()
	// Midday in exchange time so the calendar date cannot shift.
	local := time.Date(y, m, day, 12, 0, 0, 0, c.loc)
	if c.cal == nil {
		wd := local.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return c.cal.IsBusinessDay(local)
}

// Set is the calendars of every exchange in the universe.
type Set struct {
	calendars []*Calendar
}

// NewSet loads one calendar per distinct exchange among symbols.
func NewSet(symbols []string) *Set {
	seen := make(map[string]bool)
	s := &Set{}
	for _, sym := range symbols {
		mic := MIC(sym)
		if seen[mic] {
			continue
		}
		seen[mic] = true
		s.calendars = append(s.calendars, ForMIC(mic))
	}
	if len(s.calendars) == 0 {
		s.calendars = append(s.calendars, ForMIC(defaultMIC))
	}
	return s
}

// AnyOpen reports whether at least one exchange trades on d.
func (s *Set) AnyOpen(d time.Time) bool {
	for _, c := range s.calendars {
		if c.IsTradingDay(d) {
			return true
		}
	}
	return false
}

// MICs lists the loaded exchange codes.
func (s *Set) MICs() []string {
	out := make([]string, len(s.calendars))
	for i, c := range s.calendars {
		out[i] = c.MIC
	}
	return out
}
