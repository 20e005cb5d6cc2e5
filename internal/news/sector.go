package news

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/store"
)

const maxPerSector = 15

// Searcher runs a single web news query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Article, error)
}

// SectorFeed is one sector's entry in sector_news.json.
type SectorFeed struct {
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Articles []Article `json:"articles"`
}

// SectorNews is the sector_news.json document.
type SectorNews struct {
	FetchedAt   time.Time             `json:"fetched_at"`
	Description string                `json:"description"`
	Sectors     map[string]SectorFeed `json:"sectors"`
}

// SectorCollector gathers valuation-related news for every sector.
type SectorCollector struct {
	Search Searcher
	Store  *store.Store
	Log    logrus.FieldLogger
	Window time.Duration
	Now    func() time.Time
}

// NewSectorCollector creates a collector with a 30-day window.
func NewSectorCollector(s Searcher, st *store.Store) *SectorCollector {
	return &SectorCollector{
		Search: s,
		Store:  st,
		Log:    logging.Discard(),
		Window: 30 * 24 * time.Hour,
		Now:    time.Now,
	}
}

// Collect runs every sector's queries and replaces sector_news.json. A failed
// query is logged and contributes no articles.
func (c *SectorCollector) Collect(ctx context.Context, sectors []model.Sector) (*SectorNews, error) {
	now := c.Now()
	doc := &SectorNews{
		FetchedAt:   now,
		Description: "Analyst and market news per sector. Refresh with: sentinel news",
		Sectors:     make(map[string]SectorFeed, len(sectors)),
	}

	for _, sec := range sectors {
		log := c.Log.WithField("sector", sec.ID)
		var all []Article
		for _, q := range sec.NewsQueries {
			results, err := c.Search.Search(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.WithError(err).WithField("query", q).Warn("news search failed")
				continue
			}
			all = append(all, results...)
		}

		var kept []Article
		for _, a := range all {
			a.Date = normalizeDate(a.Date)
			if aboutValuation(a.Title, a.Body) && withinWindow(a.Date, now, c.Window) {
				kept = append(kept, a)
			}
		}
		kept = dedupe(kept, func(a Article) string { return a.URL })
		if len(kept) > maxPerSector {
			kept = kept[:maxPerSector]
		}
		if kept == nil {
			kept = []Article{}
		}

		doc.Sectors[sec.ID] = SectorFeed{Name: sec.Name, Icon: sec.Icon, Articles: kept}
		log.WithField("articles", len(kept)).Info("sector news collected")
	}

	if err := store.WriteJSON(c.Store.SectorNewsPath(), doc); err != nil {
		return nil, err
	}
	return doc, nil
}
