package source

import (
	"context"
	"sync"

	"github.com/sabio-ai/sabio/internal/kb"
)

// ResourceFetcher fetches the full detail of one resource. Implemented by
// kb.Client.
type ResourceFetcher interface {
	Resource(ctx context.Context, resourceID string) (*kb.Resource, error)
}

// resourceCache memoizes resource detail lookups for the duration of one
// enrichment call. A resource referenced by several passages or files
// triggers at most one detail fetch; concurrent requesters for the same
// id await the single in-flight fetch instead of duplicating it.
//
// Lifetime is one Assemble invocation. Never shared across requests, no
// eviction: the entry count is bounded by the distinct resources in one
// response.
type resourceCache struct {
	fetcher ResourceFetcher

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// cacheEntry is one fetch, shared by every requester of its resource id.
// ready is closed once res/err are populated.
type cacheEntry struct {
	ready chan struct{}
	res   *kb.Resource
	err   error
}

func newResourceCache(fetcher ResourceFetcher) *resourceCache {
	return &resourceCache{
		fetcher: fetcher,
		entries: make(map[string]*cacheEntry),
	}
}

// get returns the resource detail, fetching it on first use. Errors are
// memoized too: a resource that failed once in this request is not
// re-fetched for its remaining passages.
func (c *resourceCache) get(ctx context.Context, resourceID string) (*kb.Resource, error) {
	c.mu.Lock()
	entry, ok := c.entries[resourceID]
	if ok {
		c.mu.Unlock()
		select {
		case <-entry.ready:
			return entry.res, entry.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	entry = &cacheEntry{ready: make(chan struct{})}
	c.entries[resourceID] = entry
	c.mu.Unlock()

	entry.res, entry.err = c.fetcher.Resource(ctx, resourceID)
	close(entry.ready)
	return entry.res, entry.err
}
