// Package resolver chooses a provider per symbol and retries across the
// ordered provider list until one returns usable data.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

// ErrNoProviders is returned by New when neither provider is available.
var ErrNoProviders = errors.New("no providers configured")

// Resolution describes how a lookup was satisfied. An empty Provider means
// every attempt came back without usable data.
type Resolution struct {
	Provider string
	Attempts int
	Fallback bool
}

// Found reports whether any provider returned usable data.
func (r Resolution) Found() bool { return r.Provider != "" }

// Resolver walks the per-symbol provider order.
type Resolver struct {
	primary    collector.Provider
	secondary  collector.Provider
	order      model.ProviderOrder
	MaxRetries int
	RetryDelay time.Duration
	Log        logrus.FieldLogger

	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// New creates a resolver. Either provider may be nil when disabled, but not both.
func New(primary, secondary collector.Provider, order model.ProviderOrder) (*Resolver, error) {
	if isNil(primary) && isNil(secondary) {
		return nil, ErrNoProviders
	}
	return &Resolver{
		primary:    primary,
		secondary:  secondary,
		order:      order,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Log:        logging.Discard(),
		sleep:      Sleep,
	}, nil
}

// isNil catches typed nil pointers stored in the interface.
func isNil(p collector.Provider) bool {
	if p == nil {
		return true
	}
	switch v := p.(type) {
	case *collector.FMPProvider:
		return v == nil
	case *collector.YahooProvider:
		return v == nil
	case *collector.MockProvider:
		return v == nil
	}
	return false
}

// Order returns the providers to consult for symbol, first choice first.
func (r *Resolver) Order(symbol string) []collector.Provider {
	var seq []collector.Provider
	switch {
	case r.order.SecondaryExcluded(symbol):
		seq = []collector.Provider{r.primary}
	case r.order.SecondaryFirst(symbol):
		seq = []collector.Provider{r.secondary, r.primary}
	default:
		seq = []collector.Provider{r.primary, r.secondary}
	}
	out := seq[:0]
	for _, p := range seq {
		if !isNil(p) {
			out = append(out, p)
		}
	}
	return out
}

// ResolveQuote returns the first usable quote for symbol, or nil.
func (r *Resolver) ResolveQuote(ctx context.Context, symbol string) (*model.Quote, Resolution) {
	return resolve(ctx, r, symbol, "quote",
		func(p collector.Provider) (*model.Quote, collector.Status, error) {
			res := p.Quote(ctx, symbol)
			return res.Quote, res.Status, res.Err
		},
		func(q *model.Quote) bool { return q.Usable() },
	)
}

// ResolveHistorical returns the first usable bar series for symbol within
// [from, to], newest first, or nil.
func (r *Resolver) ResolveHistorical(ctx context.Context, symbol string, from, to time.Time) (model.Bars, Resolution) {
	return resolve(ctx, r, symbol, "historical",
		func(p collector.Provider) (model.Bars, collector.Status, error) {
			res := p.HistoricalBars(ctx, symbol, from, to)
			return res.Bars, res.Status, res.Err
		},
		func(b model.Bars) bool { return b.Usable() },
	)
}

// resolve makes up to MaxRetries+1 passes over the symbol's provider order,
// returning the first valid result. The delay applies between passes only.
func resolve[T any](
	ctx context.Context,
	r *Resolver,
	symbol, kind string,
	call func(collector.Provider) (T, collector.Status, error),
	valid func(T) bool,
) (T, Resolution) {
	var zero T
	providers := r.Order(symbol)
	log := r.Log.WithFields(logrus.Fields{"symbol": symbol, "kind": kind})
	if len(providers) == 0 {
		log.Warn("no enabled provider for symbol")
		return zero, Resolution{}
	}

	attempts := r.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		for i, p := range providers {
			v, status, err := call(p)
			if status == collector.StatusOK && valid(v) {
				return v, Resolution{Provider: p.Name(), Attempts: attempt, Fallback: i > 0}
			}
			entry := log.WithFields(logrus.Fields{"provider": p.Name(), "attempt": attempt, "status": status})
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Debug("provider returned no usable data")
		}
		if attempt < attempts {
			if err := r.sleep(ctx, r.RetryDelay); err != nil {
				log.WithError(err).Warn("resolution interrupted")
				return zero, Resolution{Attempts: attempt}
			}
		}
	}
	log.Warn("all providers exhausted")
	return zero, Resolution{Attempts: attempts}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
