package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSearchURL is the script-free DuckDuckGo endpoint.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

// Article is one sector news result.
type Article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
	Body  string `json:"body"`
}

// DuckDuckGo searches the web without an API key.
type DuckDuckGo struct {
	client
	MaxResults int
}

// NewDuckDuckGo creates a searcher that waits one second between queries.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	return &DuckDuckGo{client: newClient(DefaultSearchURL, time.Second, opts), MaxResults: 12}
}

// Search runs query restricted to the past month.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Article, error) {
	form := url.Values{"q": {query}, "df": {"m"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := d.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return parseResults(body, d.MaxResults)
}

func parseResults(page []byte, limit int) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	var out []Article
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		target := resultURL(href)
		if title == "" || target == "" {
			return true
		}
		out = append(out, Article{
			Title: title,
			URL:   target,
			Date:  strings.TrimSpace(s.Find(".result__timestamp").First().Text()),
			Body:  truncate(strings.TrimSpace(s.Find(".result__snippet").First().Text()), 300),
		})
		return true
	})
	return out, nil
}

// resultURL unwraps DuckDuckGo's redirect links.
func resultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
