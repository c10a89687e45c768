// Package fetch retrieves pages and feed documents over HTTP with rate
// limiting, retries, per-host circuit breaking and a response cache.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/model"
	"github.com/richardwooding/feed-miner/version"
)

// acceptHeader prefers feed formats but still accepts the HTML pages we scan.
const acceptHeader = "application/rss+xml, application/atom+xml, application/rdf+xml;q=0.9, application/xml;q=0.9, text/xml;q=0.9, text/html;q=0.8, */*;q=0.5"

// Response is a fetched resource with a 2xx status.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves the body of a URL. Non-2xx responses are errors.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Config controls fetching. Zero values are replaced by defaults in New.
type Config struct {
	Engine model.Engine

	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64

	// RequestsPerSecond is a per-host limit. Negative disables limiting.
	RequestsPerSecond float64
	BurstCapacity     int
	Pool              HTTPPoolConfig
	HTTPClient        *http.Client

	// BlockPrivateIPs refuses connections to loopback and private addresses.
	// It only applies to the default HTTPClient.
	BlockPrivateIPs bool

	// MaxRetries is the number of retries after the first attempt for
	// network errors, 429 and 5xx responses. Zero disables retrying.
	MaxRetries           int
	RetryInitialInterval time.Duration

	CacheEnabled  *bool
	CacheTTL      time.Duration
	CacheMaxBytes int64

	CircuitBreakerEnabled          *bool
	CircuitBreakerMaxRequests      uint32
	CircuitBreakerInterval         time.Duration
	CircuitBreakerTimeout          time.Duration
	CircuitBreakerFailureThreshold uint32

	Logger logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.Engine == model.UndefinedEngine {
		c.Engine = model.HTTPEngine
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = 10 << 20
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5.0
	}
	if c.BurstCapacity <= 0 {
		c.BurstCapacity = 10
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 500 * time.Millisecond
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.CacheMaxBytes <= 0 {
		c.CacheMaxBytes = 64 << 20
	}
	if c.CircuitBreakerMaxRequests == 0 {
		c.CircuitBreakerMaxRequests = 1
	}
	if c.CircuitBreakerInterval <= 0 {
		c.CircuitBreakerInterval = 60 * time.Second
	}
	if c.CircuitBreakerTimeout <= 0 {
		c.CircuitBreakerTimeout = 30 * time.Second
	}
	if c.CircuitBreakerFailureThreshold == 0 {
		c.CircuitBreakerFailureThreshold = 5
	}
	if c.Logger == nil {
		c.Logger = model.DiscardLogger()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(c.Timeout, c.Pool, c.BlockPrivateIPs)
	}
	return c
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// New builds the Fetcher selected by cfg.Engine.
func New(cfg Config) (Fetcher, error) {
	cfg = cfg.withDefaults()

	switch cfg.Engine {
	case model.HTTPEngine:
		return NewHTTPFetcher(cfg)
	case model.CollyEngine:
		return NewCollyFetcher(cfg)
	default:
		return nil, model.CreateConfigurationError(model.ErrInvalidEngine, "unknown fetch engine "+cfg.Engine.String())
	}
}

// Close releases resources held by f when it has any.
func Close(f Fetcher) {
	if c, ok := f.(interface{ Close() }); ok {
		c.Close()
	}
}
