package news

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"SectorSentinel/internal/model"
)

var (
	// Sector news must be about value, valuation or stock performance.
	valuationTerms = regexp.MustCompile(`(?i)\b(valuation|valuations|value|valued|market cap|market value|` +
		`stock|stocks|share price|shares|equity|ticker|trading|traded|` +
		`analyst|analysts|earnings|revenue|growth|outlook|` +
		`price target|downgrade|upgrade|downgraded|upgraded|` +
		`multiple|P/E|forward revenue|ARR|` +
		`selloff|sell-off|crash|drop|decline|rally)\b`)

	// Private company news must be about financing, M&A or headcount.
	healthTerms = regexp.MustCompile(`(?i)\b(funding|raised|raise|acquisition|acquired|acquirer|valuation|` +
		`series [a-d]|seed round|down round|up round|layoff|layoffs|` +
		`ipo|merger|invest|investment|venture|vc|private equity)\b`)

	isoDate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	usDate  = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
)

// First words that are common English and need the full company name to match.
var ambiguousNames = map[string]bool{
	"wave": true, "notion": true, "spot": true, "cloud": true,
	"stay": true, "bind": true, "person": true,
}

func aboutValuation(title, body string) bool {
	return valuationTerms.MatchString(title + " " + body)
}

func aboutHealth(title, description, company string) bool {
	text := strings.ToLower(title + " " + description)
	if !healthTerms.MatchString(text) {
		return false
	}
	first := strings.ToLower(searchName(company))
	if ambiguousNames[first] {
		return strings.Contains(text, first) || strings.Contains(text, strings.ToLower(company))
	}
	return true
}

// searchName is the part of a company name sent to the search API.
func searchName(company string) string {
	fields := strings.Fields(company)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// normalizeDate extracts YYYY-MM-DD from an ISO or M/D/YYYY string. Other
// strings are cut to ten characters.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := usDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	return truncate(s, 10)
}

// withinWindow reports whether date is no older than window before now.
// Undated results pass; the search itself is restricted to recent news.
func withinWindow(date string, now time.Time, window time.Duration) bool {
	if date == "" {
		return true
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return false
	}
	cutoff := model.DateOf(now.Add(-window))
	return !d.Before(cutoff)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func dedupe[T any](items []T, key func(T) string) []T {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		k := strings.TrimSpace(key(it))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}
