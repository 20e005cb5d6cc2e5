package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"SectorSentinel/internal/model"
)

// DefaultNewsAPIURL is the NewsAPI full-text search endpoint.
const DefaultNewsAPIURL = "https://newsapi.org/v2/everything"

// NewsAPI searches newsapi.org.
type NewsAPI struct {
	client
	apiKey   string
	PageSize int
}

// APIArticle is one NewsAPI search hit.
type APIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []APIArticle `json:"articles"`
}

// NewNewsAPI creates a client that waits half a second between requests,
// the pace the free tier tolerates.
func NewNewsAPI(apiKey string, opts ...Option) (*NewsAPI, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &NewsAPI{client: newClient(DefaultNewsAPIURL, 500*time.Millisecond, opts), apiKey: apiKey, PageSize: 5}, nil
}

// Everything returns the newest English articles matching query since from.
func (n *NewsAPI) Everything(ctx context.Context, query string, from time.Time) ([]APIArticle, error) {
	params := url.Values{
		"q":        {query},
		"from":     {model.FormatDate(from)},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(n.PageSize)},
		"language": {"en"},
		"apiKey":   {n.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	body, err := n.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: decode: %w", err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi: %s: %s", resp.Code, resp.Message)
	}
	return resp.Articles, nil
}
