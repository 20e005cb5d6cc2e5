package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/model"
)

type sleepRecorder struct{ calls []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func newResolver(t *testing.T, a, b *collector.MockProvider, order model.ProviderOrder) (*Resolver, *sleepRecorder) {
	t.Helper()
	var pa, pb collector.Provider
	if a != nil {
		pa = a
	}
	if b != nil {
		pb = b
	}
	r, err := New(pa, pb, order)
	require.NoError(t, err)
	rec := &sleepRecorder{}
	r.sleep = rec.sleep
	return r, rec
}

func TestNew_NoProviders(t *testing.T) {
	_, err := New(nil, nil, model.ProviderOrder{})
	assert.ErrorIs(t, err, ErrNoProviders)

	var fmp *collector.FMPProvider
	_, err = New(fmp, nil, model.ProviderOrder{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestResolveQuote_SecondaryFirstNeverConsultsPrimary(t *testing.T) {
	a := collector.NewMockProvider("A").SetQuote("XRO.AX", collector.OKQuote("XRO.AX", 1, 1))
	b := collector.NewMockProvider("B").SetQuote("XRO.AX", collector.OKQuote("XRO.AX", 150, 100))
	r, _ := newResolver(t, a, b, model.NewProviderOrder([]string{"XRO.AX"}, nil))

	q, res := r.ResolveQuote(context.Background(), "XRO.AX")
	require.NotNil(t, q)
	assert.Equal(t, 150.0, q.Price.Float64)
	assert.Equal(t, Resolution{Provider: "B", Attempts: 1, Fallback: false}, res)
	assert.Equal(t, 0, a.CallCount("quote", "XRO.AX"))
}

func TestResolveQuote_ZeroPriceFallsThrough(t *testing.T) {
	a := collector.NewMockProvider("A").SetQuote("CRM", collector.OKQuote("CRM", 0, 100))
	b := collector.NewMockProvider("B").SetQuote("CRM", collector.OKQuote("CRM", 150, 100))
	r, sleeps := newResolver(t, a, b, model.ProviderOrder{})

	q, res := r.ResolveQuote(context.Background(), "CRM")
	require.NotNil(t, q)
	assert.Equal(t, 150.0, q.Price.Float64)
	assert.Equal(t, 100.0, q.PreviousClose.Float64)
	assert.Equal(t, "B", res.Provider)
	assert.True(t, res.Fallback)
	assert.Empty(t, sleeps.calls, "no delay between providers")
}

func TestResolveQuote_ExcludedNeverUsesSecondary(t *testing.T) {
	a := collector.NewMockProvider("A")
	b := collector.NewMockProvider("B").SetQuote("SMAR", collector.OKQuote("SMAR", 50, 49))
	r, sleeps := newResolver(t, a, b, model.NewProviderOrder([]string{"SMAR"}, []string{"SMAR"}))

	q, res := r.ResolveQuote(context.Background(), "SMAR")
	assert.Nil(t, q)
	assert.False(t, res.Found())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, a.CallCount("quote", "SMAR"))
	assert.Equal(t, 0, b.CallCount("quote", "SMAR"))
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, sleeps.calls)
}

func TestResolveQuote_RetriesWholeSequence(t *testing.T) {
	a := collector.NewMockProvider("A").SetQuote("X",
		collector.TransientQuote(), collector.TransientQuote(), collector.OKQuote("X", 10, 9))
	b := collector.NewMockProvider("B")
	r, sleeps := newResolver(t, a, b, model.ProviderOrder{})

	q, res := r.ResolveQuote(context.Background(), "X")
	require.NotNil(t, q)
	assert.Equal(t, Resolution{Provider: "A", Attempts: 3}, res)
	assert.Equal(t, 2, b.CallCount("quote", "X"))
	assert.Len(t, sleeps.calls, 2)
}

func TestResolveQuote_MaxRetriesZero(t *testing.T) {
	a := collector.NewMockProvider("A")
	r, sleeps := newResolver(t, a, nil, model.ProviderOrder{})
	r.MaxRetries = 0

	_, res := r.ResolveQuote(context.Background(), "X")
	assert.False(t, res.Found())
	assert.Equal(t, 1, a.CallCount("quote", "X"))
	assert.Empty(t, sleeps.calls)
}

func TestResolveQuote_DisabledPrimary(t *testing.T) {
	b := collector.NewMockProvider("B").SetQuote("X", collector.OKQuote("X", 10, 9))
	r, _ := newResolver(t, nil, b, model.ProviderOrder{})

	_, res := r.ResolveQuote(context.Background(), "X")
	assert.Equal(t, "B", res.Provider)
	assert.False(t, res.Fallback, "only provider in the order")
}

func TestResolveQuote_EmptyOrderDoesNotWait(t *testing.T) {
	b := collector.NewMockProvider("B").SetQuote("SMAR", collector.OKQuote("SMAR", 50, 49))
	r, sleeps := newResolver(t, nil, b, model.NewProviderOrder(nil, []string{"SMAR"}))

	q, res := r.ResolveQuote(context.Background(), "SMAR")
	assert.Nil(t, q)
	assert.Equal(t, Resolution{}, res)
	assert.Empty(t, sleeps.calls)
	assert.Equal(t, 0, b.CallCount("quote", "SMAR"))
}

func TestResolveHistorical_RetriesTransient(t *testing.T) {
	d := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	a := collector.NewMockProvider("A").SetBars("X",
		collector.TransientBars(), collector.OKBars(model.Bar{Date: d, Close: null.FloatFrom(7)}))
	b := collector.NewMockProvider("B").SetBars("X", collector.AbsentBars())
	r, sleeps := newResolver(t, a, b, model.ProviderOrder{})

	bars, res := r.ResolveHistorical(context.Background(), "X", d.AddDate(0, 0, -5), d)
	require.Len(t, bars, 1)
	assert.Equal(t, Resolution{Provider: "A", Attempts: 2}, res)
	assert.Equal(t, 1, b.CallCount("historical", "X"))
	assert.Len(t, sleeps.calls, 1)
}

func TestResolveHistorical_RequiresAClose(t *testing.T) {
	d := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	a := collector.NewMockProvider("A").SetBars("X", collector.OKBars(model.Bar{Date: d, Open: null.FloatFrom(5)}))
	b := collector.NewMockProvider("B").SetBars("X", collector.OKBars(model.Bar{Date: d, Close: null.FloatFrom(6)}))
	r, _ := newResolver(t, a, b, model.ProviderOrder{})

	bars, res := r.ResolveHistorical(context.Background(), "X", d.AddDate(0, 0, -5), d.AddDate(0, 0, 2))
	require.Len(t, bars, 1)
	assert.Equal(t, 6.0, bars[0].Close.Float64)
	assert.Equal(t, "B", res.Provider)
}

func TestResolve_CancelledContextStopsRetrying(t *testing.T) {
	a := collector.NewMockProvider("A")
	r, err := New(a, nil, model.ProviderOrder{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, res := r.ResolveQuote(ctx, "X")
	assert.False(t, res.Found())
	assert.Equal(t, 1, a.CallCount("quote", "X"))
}
