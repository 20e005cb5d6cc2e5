package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com/x">Sponsored</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example.com%2Ftoast&amp;rut=abc">Toast stock jumps on earnings</a></h2>
  <a class="result__snippet">Shares of Toast rose 12% after the restaurant software maker beat estimates.</a>
  <span class="result__timestamp">2026-02-04T10:00:00</span>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://direct.example.com/a">Lightspeed outlook</a></h2>
  <a class="result__snippet">Analysts weigh in.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="javascript:void(0)">Broken</a></h2>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("q")
		gotRange = r.PostForm.Get("df")
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithBaseURL(srv.URL), WithQueryDelay(0))
	got, err := d.Search(context.Background(), "Toast TOST stock analyst")
	require.NoError(t, err)

	assert.Equal(t, "Toast TOST stock analyst", gotQuery)
	assert.Equal(t, "m", gotRange)
	require.Len(t, got, 2)
	assert.Equal(t, Article{
		Title: "Toast stock jumps on earnings",
		URL:   "https://news.example.com/toast",
		Date:  "2026-02-04T10:00:00",
		Body:  "Shares of Toast rose 12% after the restaurant software maker beat estimates.",
	}, got[0])
	assert.Equal(t, "https://direct.example.com/a", got[1].URL)
	assert.Empty(t, got[1].Date)
}

func TestDuckDuckGoLimit(t *testing.T) {
	got, err := parseResults([]byte(resultsPage), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDuckDuckGoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(WithBaseURL(srv.URL), WithQueryDelay(0)).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "status 403")
}
