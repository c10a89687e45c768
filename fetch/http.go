package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/model"
)

// HTTPFetcher fetches with net/http through a shared rate-limited client,
// retrying transient failures and short-circuiting hosts that keep failing.
type HTTPFetcher struct {
	cfg      Config
	client   *http.Client
	limiters *hostLimiters
	cache    *responseCache
	breakers *breakerRegistry
	logger   logrus.FieldLogger
}

// NewHTTPFetcher creates an HTTPFetcher. Zero config values pick defaults.
func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	cfg = cfg.withDefaults()

	f := &HTTPFetcher{
		cfg:      cfg,
		client:   cfg.HTTPClient,
		limiters: newHostLimiters(cfg.RequestsPerSecond, cfg.BurstCapacity),
		logger:   cfg.Logger.WithField("component", "http_fetcher"),
	}

	if enabled(cfg.CacheEnabled) {
		cache, err := newResponseCache(cfg.CacheMaxBytes, cfg.CacheTTL)
		if err != nil {
			return nil, model.NewFeedErrorWithCause(model.ErrorTypeInternal, "failed to create response cache", err).
				WithComponent("http_fetcher")
		}
		f.cache = cache
	}

	if enabled(cfg.CircuitBreakerEnabled) {
		f.breakers = newBreakerRegistry(cfg)
	}

	return f, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := model.ParseHTTPURL(rawURL)
	if err != nil {
		return nil, model.CreateValidationError(err, rawURL)
	}

	if resp, ok := f.cache.get(ctx, rawURL); ok {
		f.logger.WithField("url", rawURL).Trace("cache hit")
		return resp, nil
	}

	var resp *Response
	if f.breakers != nil {
		result, cbErr := f.breakers.get(u.Host).Execute(func() (interface{}, error) {
			return f.fetchWithRetry(ctx, rawURL, u.Host)
		})
		if cbErr != nil {
			if isBreakerRejection(cbErr) {
				return nil, model.CreateCircuitBreakerError(cbErr, rawURL, f.breakers.state(u.Host).String())
			}
			return nil, cbErr
		}
		resp = result.(*Response)
	} else {
		resp, err = f.fetchWithRetry(ctx, rawURL, u.Host)
		if err != nil {
			return nil, err
		}
	}

	f.cache.set(ctx, rawURL, resp)
	return resp, nil
}

func (f *HTTPFetcher) fetchWithRetry(ctx context.Context, rawURL, host string) (*Response, error) {
	maxAttempts := f.cfg.MaxRetries + 1
	attempt := 0

	operation := func() (*Response, error) {
		attempt++
		resp, err := f.fetchOnce(ctx, rawURL, host)
		if err != nil && !isRetryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(f.cfg.RetryInitialInterval),
				backoff.WithMaxElapsedTime(0),
			),
			uint64(f.cfg.MaxRetries),
		),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		f.logger.WithFields(model.FeedErrorFields(err)).
			WithFields(logrus.Fields{"attempt": attempt, "max_attempts": maxAttempts, "wait": wait.String()}).
			Debug("retrying fetch")
	}

	resp, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		if _, ok := model.AsFeedError(err); !ok {
			err = model.CreateNetworkError(err, rawURL)
		}
		if attempt > 1 {
			return nil, model.CreateRetryError(err, rawURL, attempt, maxAttempts)
		}
		return nil, err
	}
	return resp, nil
}

// fetchOnce makes a single attempt. The rate limit token is taken with the
// caller's ctx; only the request itself runs under cfg.Timeout.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL, host string) (*Response, error) {
	if err := f.limiters.wait(ctx, host); err != nil {
		return nil, model.CreateNetworkError(err, rawURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.CreateValidationError(fmt.Errorf("%w: %v", model.ErrInvalidURL, err), rawURL)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	httpResp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, model.ErrPrivateIPBlocked) {
			return nil, model.CreateValidationError(err, rawURL)
		}
		return nil, model.CreateNetworkError(err, rawURL)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 64<<10))
		return nil, model.CreateHTTPError(httpResp.StatusCode, httpResp.Header, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.cfg.MaxBodySize+1))
	if err != nil {
		return nil, model.CreateNetworkError(err, rawURL)
	}
	if int64(len(body)) > f.cfg.MaxBodySize {
		return nil, model.NewFeedError(model.ErrorTypeHTTP, fmt.Sprintf("Response exceeds %d bytes", f.cfg.MaxBodySize)).
			WithURL(rawURL).
			WithOperation("fetch").
			WithComponent("http_client").
			WithHTTP(httpResp.StatusCode, httpResp.Header)
	}

	return &Response{
		URL:         finalURL(httpResp, rawURL),
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func finalURL(resp *http.Response, fallback string) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return fallback
}

// isRetryable reports whether err is worth another attempt: network
// failures, 429 and 5xx, unless the caller's context is done.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, errThrottled) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, context.Canceled) {
		return false
	}

	fe, ok := model.AsFeedError(err)
	if !ok {
		return false
	}

	switch fe.ErrorType {
	case model.ErrorTypeNetwork, model.ErrorTypeTimeout, model.ErrorTypeConnectionFailed,
		model.ErrorTypeHTTPServerError:
		return true
	case model.ErrorTypeHTTPClientError:
		return fe.HTTPStatus == http.StatusTooManyRequests
	default:
		return false
	}
}

// Wait blocks until cached responses are visible to later fetches.
func (f *HTTPFetcher) Wait() {
	f.cache.wait()
}

// Close releases the response cache.
func (f *HTTPFetcher) Close() {
	f.cache.close()
}
