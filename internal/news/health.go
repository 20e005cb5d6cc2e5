package news

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/store"
)

const maxPerCompany = 5

// ArticleSearcher runs a NewsAPI-style search.
type ArticleSearcher interface {
	Everything(ctx context.Context, query string, from time.Time) ([]APIArticle, error)
}

// HealthItem is one financing or M&A headline for a private company.
type HealthItem struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// PrivateHealth is the private_health.json document. Only companies with
// relevant news appear.
type PrivateHealth struct {
	FetchedAt   time.Time               `json:"fetched_at"`
	Description string                  `json:"description"`
	Companies   map[string][]HealthItem `json:"companies"`
}

// HealthCollector gathers funding and acquisition news for private companies.
type HealthCollector struct {
	Search ArticleSearcher
	Store  *store.Store
	Log    logrus.FieldLogger
	Window time.Duration
	Now    func() time.Time
}

// NewHealthCollector creates a collector with a 90-day window.
func NewHealthCollector(s ArticleSearcher, st *store.Store) *HealthCollector {
	return &HealthCollector{
		Search: s,
		Store:  st,
		Log:    logging.Discard(),
		Window: 90 * 24 * time.Hour,
		Now:    time.Now,
	}
}

func healthQuery(company string) string {
	return `"` + searchName(company) + `" (funding OR raised OR acquisition OR acquired OR valuation OR "down round" OR "up round")`
}

// Collect searches every company and replaces private_health.json.
func (c *HealthCollector) Collect(ctx context.Context, companies []string) (*PrivateHealth, error) {
	now := c.Now()
	from := now.Add(-c.Window)
	doc := &PrivateHealth{
		FetchedAt:   now,
		Description: "Health indicators for private SMB SaaS companies. Refresh with: sentinel private-health",
		Companies:   make(map[string][]HealthItem),
	}

	for _, company := range companies {
		log := c.Log.WithField("company", company)
		if searchName(company) == "" {
			continue
		}
		articles, err := c.Search.Everything(ctx, healthQuery(company), from)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Warn("news search failed")
			continue
		}

		var items []HealthItem
		for _, a := range articles {
			if a.URL == "" || !aboutHealth(a.Title, a.Description, company) {
				continue
			}
			items = append(items, formatHealthItem(a))
		}
		items = dedupe(items, func(h HealthItem) string { return h.URL })
		if len(items) == 0 {
			log.Debug("no relevant news")
			continue
		}
		if len(items) > maxPerCompany {
			items = items[:maxPerCompany]
		}
		doc.Companies[company] = items
		log.WithField("items", len(items)).Info("private company news collected")
	}

	if err := store.WriteJSON(c.Store.PrivateHealthPath(), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func formatHealthItem(a APIArticle) HealthItem {
	summary := a.Title
	if summary == "" {
		summary = a.Description
	}
	source := a.Source.Name
	if source == "" {
		source = "Unknown"
	}
	return HealthItem{
		Date:    truncate(a.PublishedAt, 10),
		Summary: truncate(strings.TrimSpace(summary), 200),
		Source:  source,
		URL:     a.URL,
	}
}
