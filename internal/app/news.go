package app

import (
	"context"

	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/news"
)

// SectorNews refreshes sector_news.json.
func (a *App) SectorNews(ctx context.Context) (*news.SectorNews, error) {
	opts := []news.Option{
		news.WithHTTPClient(collector.NewHTTPClient(a.Config.Proxy, a.Config.Providers.Timeout)),
		news.WithQueryDelay(a.Config.News.QueryDelay),
	}
	if a.Config.News.SearchURL != "" {
		opts = append(opts, news.WithBaseURL(a.Config.News.SearchURL))
	}
	c := news.NewSectorCollector(news.NewDuckDuckGo(opts...), a.Store)
	c.Window = a.Config.News.SectorWindow
	c.Log = logging.WithComponent(a.Log, "sector-news")
	return c.Collect(ctx, a.Universe.Sectors)
}

// PrivateHealth refreshes private_health.json. It fails with
// news.ErrMissingAPIKey when no NewsAPI key is configured.
func (a *App) PrivateHealth(ctx context.Context) (*news.PrivateHealth, error) {
	opts := []news.Option{
		news.WithHTTPClient(collector.NewHTTPClient(a.Config.Proxy, a.Config.Providers.Timeout)),
	}
	if a.Config.News.NewsAPIURL != "" {
		opts = append(opts, news.WithBaseURL(a.Config.News.NewsAPIURL))
	}
	api, err := news.NewNewsAPI(a.Config.News.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	c := news.NewHealthCollector(api, a.Store)
	c.Window = a.Config.News.HealthWindow
	c.Log = logging.WithComponent(a.Log, "private-health")
	return c.Collect(ctx, a.Universe.PrivateCompanies)
}
