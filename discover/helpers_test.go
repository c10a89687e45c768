package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/richardwooding/feed-miner/fetch"
	"github.com/richardwooding/feed-miner/model"
)

func rssDoc(title, link string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>%s</title>
		<link>%s</link>
		<description>test</description>
	</channel>
</rss>`, title, link)
}

func atomDoc(title, link string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>%s</title>
	<link rel="self" href="/atom.xml"/>
	<link rel="alternate" href="%s"/>
	<id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
	<updated>2003-12-13T18:30:02Z</updated>
</feed>`, title, link)
}

func htmlPage(links ...string) string {
	head := ""
	for _, href := range links {
		head += fmt.Sprintf(`<link rel="alternate" type="application/rss+xml" href="%s">`, href)
	}
	return "<!DOCTYPE html><html><head><title>Home</title>" + head + "</head><body><p>hello</p></body></html>"
}

type page struct {
	contentType string
	body        string
	delay       time.Duration
	redirect    string
}

func rssPage(title, link string) page {
	return page{contentType: "application/rss+xml", body: rssDoc(title, link)}
}

func atomPage(title, link string) page {
	return page{contentType: "application/atom+xml", body: atomDoc(title, link)}
}

func homePage(links ...string) page {
	return page{contentType: "text/html; charset=utf-8", body: htmlPage(links...)}
}

// site serves a fixed set of paths and 404s everything else. It counts hits
// per path.
type site struct {
	*httptest.Server

	mu    sync.Mutex
	pages map[string]page
	hits  map[string]int
}

func newSite(t testing.TB, pages map[string]page) *site {
	t.Helper()
	s := &site{pages: pages, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		p, ok := s.pages[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		if p.redirect != "" {
			http.Redirect(w, r, p.redirect, http.StatusFound)
			return
		}
		if p.delay > 0 {
			time.Sleep(p.delay)
		}
		w.Header().Set("Content-Type", p.contentType)
		_, _ = w.Write([]byte(p.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func off() *bool {
	b := false
	return &b
}

func testConfig() Config {
	return Config{
		AllowPrivateIPs: true,
		FetchConfig: fetch.Config{
			Timeout:           2 * time.Second,
			RequestsPerSecond: -1,
			CacheEnabled:      off(),
		},
	}
}

func newTestDiscoverer(t *testing.T, cfg Config) *Discoverer {
	t.Helper()
	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// fakeFetcher serves bodies from memory and 404s unknown URLs.
type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	body, ok := f[url]
	if !ok {
		return nil, model.CreateHTTPError(http.StatusNotFound, nil, url)
	}
	return &fetch.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func candidateURLs(candidates []model.Candidate) []string {
	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}
	return urls
}

func feedURLs(feeds []model.Feed) []string {
	urls := make([]string, len(feeds))
	for i, f := range feeds {
		urls[i] = f.FeedURL
	}
	return urls
}
