package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
)

// DefaultYahooBaseURL is the public Yahoo Finance chart host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider implements Provider using the unauthenticated Yahoo Finance
// chart API.
type YahooProvider struct {
	opts options
}

// NewYahooProvider creates the secondary provider.
func NewYahooProvider(opts ...Option) *YahooProvider {
	return &YahooProvider{opts: newOptions(DefaultYahooBaseURL, opts)}
}

func (y *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []null.Float `json:"open"`
					High  []null.Float `json:"high"`
					Low   []null.Float `json:"low"`
					Close []null.Float `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// absentMarkers are error descriptions Yahoo gives for symbols it has no data
// for. They also show up as bot-protection false positives, which is still not
// worth retrying within a run.
var absentMarkers = []string{"delisted", "no data found", "timezone"}

func isAbsentDescription(desc string) bool {
	desc = strings.ToLower(desc)
	for _, m := range absentMarkers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return false
}

func (y *YahooProvider) chart(ctx context.Context, symbol string, params url.Values) (model.Bars, Status, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", y.opts.baseURL, url.PathEscape(symbol))
	params.Set("interval", "1d")
	params.Set("includePrePost", "false")

	body, err := y.opts.get(ctx, endpoint, params)
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			var chart yahooChart
			if json.Unmarshal(he.Body, &chart) == nil && chart.Chart.Error != nil &&
				isAbsentDescription(chart.Chart.Error.Description) {
				return nil, StatusAbsent, fmt.Errorf("%s", chart.Chart.Error.Description)
			}
		}
		return nil, classify(err), err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, StatusTransient, fmt.Errorf("decode: %w", err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, StatusAbsent, fmt.Errorf("api error: %s", e.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, StatusAbsent, fmt.Errorf("no data returned")
	}

	result := chart.Chart.Result[0]
	q := result.Indicators.Quote[0]
	at := func(s []null.Float, i int) null.Float {
		if i < len(s) {
			return s[i]
		}
		return null.Float{}
	}
	bars := make(model.Bars, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := model.Bar{
			// Exchange-local calendar date.
			Date:  model.DateOf(time.Unix(ts+result.Meta.GMTOffset, 0).UTC()),
			Open:  at(q.Open, i),
			High:  at(q.High, i),
			Low:   at(q.Low, i),
			Close: at(q.Close, i),
		}
		if !bar.Close.Valid && !bar.Open.Valid {
			continue // holidays and halted sessions
		}
		bars = append(bars, bar)
	}
	return bars.Descending(), StatusOK, nil
}

// Quote derives a quote from the last two daily closes of the past five days.
func (y *YahooProvider) Quote(ctx context.Context, symbol string) QuoteResult {
	bars, status, err := y.chart(ctx, symbol, url.Values{"range": {"5d"}})
	if err != nil {
		return quoteFailed(status, fmt.Errorf("yahoo quote %s: %w", symbol, err))
	}
	var closes []float64
	for _, b := range bars {
		if b.Close.Valid {
			closes = append(closes, b.Close.Float64)
			if len(closes) == 2 {
				break
			}
		}
	}
	if len(closes) < 2 {
		return quoteFailed(StatusAbsent, fmt.Errorf("yahoo quote %s: fewer than two closes", symbol))
	}
	cur, prev := closes[0], closes[1]
	return quoteOK(&model.Quote{
		Symbol:        symbol,
		Price:         null.FloatFrom(cur),
		PreviousClose: null.FloatFrom(prev),
		Change:        null.FloatFrom(cur - prev),
		ChangePercent: null.FloatFrom(calculator.PercentChange(prev, cur)),
	})
}

func (y *YahooProvider) HistoricalBars(ctx context.Context, symbol string, from, to time.Time) BarsResult {
	from, to = model.DateOf(from), model.DateOf(to)
	params := url.Values{
		"period1": {strconv.FormatInt(from.Unix(), 10)},
		// period2 is exclusive; extend by a day so the end date is included.
		"period2": {strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10)},
	}
	bars, status, err := y.chart(ctx, symbol, params)
	if err != nil {
		return barsFailed(status, fmt.Errorf("yahoo historical %s: %w", symbol, err))
	}
	filtered := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		filtered = append(filtered, b)
	}
	if len(filtered) == 0 {
		return barsFailed(StatusAbsent, fmt.Errorf("yahoo historical %s: no bars in range", symbol))
	}
	return barsOK(filtered)
}
