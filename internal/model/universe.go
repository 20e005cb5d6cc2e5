package model

import "fmt"

// Instrument is one tracked public company.
type Instrument struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
}

// Sector groups instruments for aggregate reporting. Members are ordered and
// may include symbols whose primary sector is another one.
type Sector struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Icon        string   `yaml:"icon"`
	Tickers     []string `yaml:"tickers"`
	NewsQueries []string `yaml:"news_queries"`
}

// ProviderOrder is the per-symbol provider preference table. The zero value
// sends every symbol to the primary provider first.
type ProviderOrder struct {
	secondaryFirst    map[string]bool
	secondaryExcluded map[string]bool
}

// NewProviderOrder builds the table. A symbol listed in both sets never
// consults the secondary provider.
func NewProviderOrder(secondaryFirst, secondaryExcluded []string) ProviderOrder {
	o := ProviderOrder{
		secondaryFirst:    make(map[string]bool, len(secondaryFirst)),
		secondaryExcluded: make(map[string]bool, len(secondaryExcluded)),
	}
	for _, s := range secondaryFirst {
		o.secondaryFirst[s] = true
	}
	for _, s := range secondaryExcluded {
		o.secondaryExcluded[s] = true
	}
	return o
}

// SecondaryFirst reports whether symbol should try the secondary provider first.
func (o ProviderOrder) SecondaryFirst(symbol string) bool {
	return o.secondaryFirst[symbol] && !o.secondaryExcluded[symbol]
}

// SecondaryExcluded reports whether symbol must never use the secondary provider.
func (o ProviderOrder) SecondaryExcluded(symbol string) bool {
	return o.secondaryExcluded[symbol]
}

// Universe is the static, process-wide instrument configuration.
type Universe struct {
	Instruments      []Instrument
	Sectors          []Sector
	Order            ProviderOrder
	PrivateCompanies []string

	bySymbol map[string]Instrument
}

// NewUniverse indexes and validates the configured instruments and sectors.
func NewUniverse(instruments []Instrument, sectors []Sector, order ProviderOrder, private []string) (*Universe, error) {
	u := &Universe{
		Instruments:      instruments,
		Sectors:          sectors,
		Order:            order,
		PrivateCompanies: private,
		bySymbol:         make(map[string]Instrument, len(instruments)),
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("universe has no instruments")
	}
	sectorIDs := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		if s.ID == "" {
			return nil, fmt.Errorf("sector %q has no id", s.Name)
		}
		if sectorIDs[s.ID] {
			return nil, fmt.Errorf("duplicate sector %q", s.ID)
		}
		sectorIDs[s.ID] = true
	}
	for _, in := range instruments {
		if in.Symbol == "" {
			return nil, fmt.Errorf("instrument %q has no symbol", in.Name)
		}
		if _, dup := u.bySymbol[in.Symbol]; dup {
			return nil, fmt.Errorf("duplicate instrument %q", in.Symbol)
		}
		if !sectorIDs[in.Sector] {
			return nil, fmt.Errorf("instrument %s: unknown sector %q", in.Symbol, in.Sector)
		}
		u.bySymbol[in.Symbol] = in
	}
	for _, s := range sectors {
		for _, t := range s.Tickers {
			if _, ok := u.bySymbol[t]; !ok {
				return nil, fmt.Errorf("sector %s: unknown ticker %q", s.ID, t)
			}
		}
	}
	return u, nil
}

// Symbols returns every configured symbol in configuration order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.Instruments))
	for i, in := range u.Instruments {
		out[i] = in.Symbol
	}
	return out
}

// Instrument looks up a symbol.
func (u *Universe) Instrument(symbol string) (Instrument, bool) {
	in, ok := u.bySymbol[symbol]
	return in, ok
}

// Missing returns configured symbols absent from present, in configuration order.
func Missing[V any](u *Universe, present map[string]V) []string {
	var out []string
	for _, in := range u.Instruments {
		if _, ok := present[in.Symbol]; !ok {
			out = append(out, in.Symbol)
		}
	}
	return out
}
