package fetch

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// responseCache holds successful responses by requested URL. Sets are
// admitted asynchronously, so a Get right after a Set may still miss.
type responseCache struct {
	client  *ristretto.Cache[string, *Response]
	manager *cache.Cache[*Response]
	ttl     time.Duration
}

func newResponseCache(maxBytes int64, ttl time.Duration) (*responseCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config[string, *Response]{
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	ristrettoStore := ristretto_store.NewRistretto[string, *Response](client)

	return &responseCache{
		client:  client,
		manager: cache.New[*Response](ristrettoStore),
		ttl:     ttl,
	}, nil
}

func (c *responseCache) get(ctx context.Context, url string) (*Response, bool) {
	if c == nil {
		return nil, false
	}
	resp, err := c.manager.Get(ctx, url)
	if err != nil || resp == nil {
		return nil, false
	}
	copied := *resp
	return &copied, true
}

func (c *responseCache) set(ctx context.Context, url string, resp *Response) {
	if c == nil {
		return
	}
	_ = c.manager.Set(ctx, url, resp,
		store.WithExpiration(c.ttl),
		store.WithCost(int64(len(resp.Body))+1),
	)
}

// wait blocks until pending sets are applied.
func (c *responseCache) wait() {
	if c != nil {
		c.client.Wait()
	}
}

func (c *responseCache) close() {
	if c != nil {
		c.client.Close()
	}
}
