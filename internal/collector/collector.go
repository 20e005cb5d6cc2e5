package collector

import (
	"context"
	"errors"
	"time"

	"github.com/guregu/null/v6"

	"SectorSentinel/internal/model"
)

// MockProvider returns scripted results for development and testing. Each
// symbol has a queue of results; the last one repeats once the queue is
// drained. Unscripted symbols are absent.
type MockProvider struct {
	ProviderName string
	Quotes       map[string][]QuoteResult
	Bars         map[string][]BarsResult
	Calls        []MockCall
}

// MockCall is one recorded invocation.
type MockCall struct {
	Method string
	Symbol string
	From   time.Time
	To     time.Time
}

// NewMockProvider creates an empty mock named name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		Quotes:       make(map[string][]QuoteResult),
		Bars:         make(map[string][]BarsResult),
	}
}

func (m *MockProvider) Name() string { return m.ProviderName }

// SetQuote scripts the quote results for symbol, in call order.
func (m *MockProvider) SetQuote(symbol string, results ...QuoteResult) *MockProvider {
	m.Quotes[symbol] = results
	return m
}

// SetBars scripts the historical results for symbol, in call order.
func (m *MockProvider) SetBars(symbol string, results ...BarsResult) *MockProvider {
	m.Bars[symbol] = results
	return m
}

// CallCount counts recorded calls of method ("quote" or "historical") for symbol.
func (m *MockProvider) CallCount(method, symbol string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method == method && c.Symbol == symbol {
			n++
		}
	}
	return n
}

func (m *MockProvider) Quote(_ context.Context, symbol string) QuoteResult {
	m.Calls = append(m.Calls, MockCall{Method: "quote", Symbol: symbol})
	queue := m.Quotes[symbol]
	if len(queue) == 0 {
		return quoteFailed(StatusAbsent, errors.New("mock: no quote scripted"))
	}
	r := queue[0]
	if len(queue) > 1 {
		m.Quotes[symbol] = queue[1:]
	}
	return r
}

func (m *MockProvider) HistoricalBars(_ context.Context, symbol string, from, to time.Time) BarsResult {
	m.Calls = append(m.Calls, MockCall{Method: "historical", Symbol: symbol, From: from, To: to})
	queue := m.Bars[symbol]
	if len(queue) == 0 {
		return barsFailed(StatusAbsent, errors.New("mock: no bars scripted"))
	}
	r := queue[0]
	if len(queue) > 1 {
		m.Bars[symbol] = queue[1:]
	}
	if r.Status != StatusOK {
		return r
	}
	// Honour the requested window like a real provider.
	var in model.Bars
	for _, b := range r.Bars {
		if b.Date.Before(model.DateOf(from)) || b.Date.After(model.DateOf(to)) {
			continue
		}
		in = append(in, b)
	}
	if len(in) == 0 {
		return barsFailed(StatusAbsent, errors.New("mock: no bars in range"))
	}
	return barsOK(in.Descending())
}

// OKQuote builds a successful quote result with a price and previous close.
// A zero previous close is left missing.
func OKQuote(symbol string, price, prevClose float64) QuoteResult {
	q := &model.Quote{Symbol: symbol, Price: null.FloatFrom(price)}
	if prevClose != 0 {
		q.PreviousClose = null.FloatFrom(prevClose)
	}
	return quoteOK(q)
}

// OKBars builds a successful historical result.
func OKBars(bars ...model.Bar) BarsResult { return barsOK(model.Bars(bars).Descending()) }

// AbsentQuote, TransientQuote, AbsentBars and TransientBars build failures.
func AbsentQuote() QuoteResult { return quoteFailed(StatusAbsent, errors.New("absent")) }

func TransientQuote() QuoteResult { return quoteFailed(StatusTransient, errors.New("transient")) }

func AbsentBars() BarsResult { return barsFailed(StatusAbsent, errors.New("absent")) }

func TransientBars() BarsResult { return barsFailed(StatusTransient, errors.New("transient")) }
