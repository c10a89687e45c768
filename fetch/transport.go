package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/richardwooding/feed-miner/model"
)

// errThrottled marks a fetch abandoned while waiting for a rate limit token.
// It never reached the host, so it is neither retried nor held against it.
var errThrottled = errors.New("abandoned while waiting for rate limit")

// HTTPPoolConfig tunes connection reuse of the shared transport.
type HTTPPoolConfig struct {
	MaxIdleConns        int
	MaxConnsPerHost     int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

func (p HTTPPoolConfig) withDefaults() HTTPPoolConfig {
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 100
	}
	if p.MaxConnsPerHost <= 0 {
		p.MaxConnsPerHost = 10
	}
	if p.MaxIdleConnsPerHost <= 0 {
		p.MaxIdleConnsPerHost = 4
	}
	if p.IdleConnTimeout <= 0 {
		p.IdleConnTimeout = 90 * time.Second
	}
	return p
}

// hostLimiters hands out one token bucket per host. Tokens are taken with the
// caller's context before a request's own timeout starts, so queueing behind
// other requests to the same host never eats into that timeout.
type hostLimiters struct {
	requestsPerSecond float64
	burst             int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// newHostLimiters returns nil when requestsPerSecond is not positive,
// which disables limiting.
func newHostLimiters(requestsPerSecond float64, burst int) *hostLimiters {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiters{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// wait blocks until host may be requested again or ctx is done.
func (h *hostLimiters) wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	if err := h.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", errThrottled, err)
	}
	return nil
}

func (h *hostLimiters) limiterFor(host string) *rate.Limiter {
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(h.requestsPerSecond), h.burst)
		h.limiters[host] = limiter
	}
	return limiter
}

// blockPrivateDial refuses connections to loopback, private and link-local
// addresses. It runs on the resolved address, so redirects and hostnames
// that resolve to internal ranges are caught too.
func blockPrivateDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if ip := net.ParseIP(host); ip != nil && model.IsPrivateIP(ip) {
		return fmt.Errorf("dial %s: %w", address, model.ErrPrivateIPBlocked)
	}
	return nil
}

// NewHTTPClient builds the shared pooled client. It sets no overall timeout:
// each attempt carries its own deadline. With blockPrivate set, connections
// to internal addresses are refused.
func NewHTTPClient(dialTimeout time.Duration, pool HTTPPoolConfig, blockPrivate bool) *http.Client {
	pool = pool.withDefaults()

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if blockPrivate {
		dialer.Control = blockPrivateDial
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          pool.MaxIdleConns,
			MaxConnsPerHost:       pool.MaxConnsPerHost,
			MaxIdleConnsPerHost:   pool.MaxIdleConnsPerHost,
			IdleConnTimeout:       pool.IdleConnTimeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
