package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"SectorSentinel/internal/model"
)

// DefaultFMPBaseURL is the Financial Modeling Prep stable API.
const DefaultFMPBaseURL = "https://financialmodelingprep.com/stable"

// ErrMissingAPIKey is returned when a keyed provider is constructed without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// FMPProvider implements Provider using Financial Modeling Prep.
type FMPProvider struct {
	apiKey string
	opts   options
}

// NewFMPProvider creates the primary provider. It fails with ErrMissingAPIKey
// when apiKey is empty.
func NewFMPProvider(apiKey string, opts ...Option) (*FMPProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fmp: %w", ErrMissingAPIKey)
	}
	return &FMPProvider{apiKey: apiKey, opts: newOptions(DefaultFMPBaseURL, opts)}, nil
}

func (f *FMPProvider) Name() string { return "fmp" }

// fmpQuote is one element of the /quote response. The change percentage has
// appeared under three different names across API versions.
type fmpQuote struct {
	Symbol            string     `json:"symbol"`
	Price             null.Float `json:"price"`
	PreviousClose     null.Float `json:"previousClose"`
	Change            null.Float `json:"change"`
	ChangePercentage  null.Float `json:"changePercentage"`
	ChangesPercentage null.Float `json:"changesPercentage"`
	ChangePercent     null.Float `json:"changePercent"`
}

func (q fmpQuote) changePct() null.Float {
	for _, v := range []null.Float{q.ChangePercentage, q.ChangesPercentage, q.ChangePercent} {
		if v.Valid {
			return v
		}
	}
	return null.Float{}
}

type fmpBar struct {
	Date  string     `json:"date"`
	Open  null.Float `json:"open"`
	High  null.Float `json:"high"`
	Low   null.Float `json:"low"`
	Close null.Float `json:"close"`
}

func (f *FMPProvider) Quote(ctx context.Context, symbol string) QuoteResult {
	body, status, err := f.fetch(ctx, "quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return quoteFailed(status, fmt.Errorf("fmp quote %s: %w", symbol, err))
	}
	var quotes []fmpQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return quoteFailed(StatusTransient, fmt.Errorf("fmp quote %s: decode: %w", symbol, err))
	}
	if len(quotes) == 0 {
		return quoteFailed(StatusAbsent, fmt.Errorf("fmp quote %s: empty response", symbol))
	}
	q := quotes[0]
	return quoteOK(&model.Quote{
		Symbol:        symbol,
		Price:         q.Price,
		PreviousClose: q.PreviousClose,
		Change:        q.Change,
		ChangePercent: q.changePct(),
	})
}

func (f *FMPProvider) HistoricalBars(ctx context.Context, symbol string, from, to time.Time) BarsResult {
	params := url.Values{
		"symbol": {symbol},
		"from":   {model.FormatDate(from)},
		"to":     {model.FormatDate(to)},
	}
	body, status, err := f.fetch(ctx, "historical-price-eod/full", params)
	if err != nil {
		return barsFailed(status, fmt.Errorf("fmp historical %s: %w", symbol, err))
	}

	var raw []fmpBar
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		err = json.Unmarshal(trimmed, &raw)
	default:
		// Legacy shape: {"symbol": "...", "historical": [...]}
		var legacy struct {
			Historical []fmpBar `json:"historical"`
		}
		err = json.Unmarshal(trimmed, &legacy)
		raw = legacy.Historical
	}
	if err != nil {
		return barsFailed(StatusTransient, fmt.Errorf("fmp historical %s: decode: %w", symbol, err))
	}

	bars := make(model.Bars, 0, len(raw))
	for _, rb := range raw {
		d, err := model.ParseDate(rb.Date)
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{Date: d, Open: rb.Open, High: rb.High, Low: rb.Low, Close: rb.Close})
	}
	if len(bars) == 0 {
		return barsFailed(StatusAbsent, fmt.Errorf("fmp historical %s: no bars", symbol))
	}
	return barsOK(bars.Descending())
}

// fetch performs the request and unwraps the "Error Message" envelope FMP
// sends with a 200 status.
func (f *FMPProvider) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, Status, error) {
	params.Set("apikey", f.apiKey)
	body, err := f.opts.get(ctx, f.opts.baseURL+"/"+endpoint, params)
	if err != nil {
		return nil, classify(err), err
	}
	var envelope struct {
		ErrorMessage string `json:"Error Message"`
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if json.Unmarshal(trimmed, &envelope) == nil && envelope.ErrorMessage != "" {
			msg := envelope.ErrorMessage
			if strings.Contains(strings.ToLower(msg), "limit reach") {
				return nil, StatusTransient, fmt.Errorf("api error: %s", msg)
			}
			return nil, StatusAbsent, fmt.Errorf("api error: %s", msg)
		}
	}
	return body, StatusOK, nil
}
