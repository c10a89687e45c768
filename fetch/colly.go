package fetch

import (
	"context"
	"errors"
	"net/http"

	"github.com/gocolly/colly"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/model"
)

// CollyFetcher fetches through a colly collector. It applies the same per-host
// rate limit and response cache as the HTTP engine but has no retry or
// circuit breaker. Colly treats any status of 203 or above as an error.
type CollyFetcher struct {
	cfg       Config
	collector *colly.Collector
	limiters  *hostLimiters
	cache     *responseCache
	logger    logrus.FieldLogger
}

// NewCollyFetcher creates a CollyFetcher. Zero config values pick defaults.
func NewCollyFetcher(cfg Config) (*CollyFetcher, error) {
	cfg = cfg.withDefaults()

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(int(cfg.MaxBodySize)),
		colly.AllowURLRevisit(),
	)
	collector.WithTransport(cfg.HTTPClient.Transport)
	collector.SetRequestTimeout(cfg.Timeout)

	f := &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		limiters:  newHostLimiters(cfg.RequestsPerSecond, cfg.BurstCapacity),
		logger:    cfg.Logger.WithField("component", "colly_fetcher"),
	}

	if enabled(cfg.CacheEnabled) {
		cache, err := newResponseCache(cfg.CacheMaxBytes, cfg.CacheTTL)
		if err != nil {
			return nil, model.NewFeedErrorWithCause(model.ErrorTypeInternal, "failed to create response cache", err).
				WithComponent("colly_fetcher")
		}
		f.cache = cache
	}

	return f, nil
}

// Fetch implements Fetcher. Colly has no context support, so ctx only bounds
// the rate limit wait and is checked before the visit starts.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := model.ParseHTTPURL(rawURL)
	if err != nil {
		return nil, model.CreateValidationError(err, rawURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, model.CreateNetworkError(err, rawURL)
	}

	if resp, ok := f.cache.get(ctx, rawURL); ok {
		return resp, nil
	}

	if err := f.limiters.wait(ctx, u.Host); err != nil {
		return nil, model.CreateNetworkError(err, rawURL)
	}

	c := f.collector.Clone()

	var result *Response
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
	})

	c.OnResponse(func(r *colly.Response) {
		final := rawURL
		if r.Request != nil && r.Request.URL != nil {
			final = r.Request.URL.String()
		}
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		result = &Response{
			URL:         final,
			StatusCode:  r.StatusCode,
			ContentType: contentType,
			Body:        r.Body,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			var headers http.Header
			if r.Headers != nil {
				headers = *r.Headers
			}
			fetchErr = model.CreateHTTPError(r.StatusCode, headers, rawURL)
			return
		}
		if errors.Is(err, model.ErrPrivateIPBlocked) {
			fetchErr = model.CreateValidationError(err, rawURL)
			return
		}
		fetchErr = model.CreateNetworkError(err, rawURL)
	})

	visitErr := c.Visit(rawURL)

	switch {
	case fetchErr != nil:
		f.logger.WithFields(model.FeedErrorFields(fetchErr)).Debug("colly fetch failed")
		return nil, fetchErr
	case visitErr != nil:
		return nil, model.CreateNetworkError(visitErr, rawURL)
	case result == nil:
		return nil, model.NewFeedError(model.ErrorTypeNetwork, "No response received").
			WithURL(rawURL).
			WithOperation("fetch").
			WithComponent("colly_fetcher")
	}

	f.cache.set(ctx, rawURL, result)
	return result, nil
}

// Close releases the response cache.
func (f *CollyFetcher) Close() {
	f.cache.close()
}
