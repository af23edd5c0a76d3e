package fetch

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cached decorates a Fetcher with a per-URL TTL cache and in-flight
// coalescing: concurrent fetches for the same URL share one upstream
// request, and repeat fetches within the TTL are served from memory.
// The TTL is seconds-scale; it dedupes zones polling a shared feed, it is
// not a freshness store.
type Cached struct {
	inner Fetcher
	ttl   time.Duration
	clock clockwork.Clock

	mu       chan struct{} // buffered-1 channel as a context-aware mutex
	entries  map[string]cacheEntry
	inflight map[string]*inflightCall
}

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

type inflightCall struct {
	done chan struct{}
	data []byte
	err  error
}

// NewCached creates a caching decorator around a Fetcher.
func NewCached(inner Fetcher, ttl time.Duration, clock clockwork.Clock) *Cached {
	c := &Cached{
		inner:    inner,
		ttl:      ttl,
		clock:    clock,
		mu:       make(chan struct{}, 1),
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*inflightCall),
	}
	c.mu <- struct{}{}
	return c
}

// Fetch returns cached bytes when fresh, joins an in-flight request for the
// same URL when one exists, and otherwise fetches upstream. Failed fetches
// are never cached, so the next cycle retries upstream.
func (c *Cached) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.mu:
	}

	if e, ok := c.entries[url]; ok && c.clock.Since(e.fetchedAt) < c.ttl {
		c.mu <- struct{}{}
		return e.data, nil
	}

	if call, ok := c.inflight[url]; ok {
		c.mu <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-call.done:
		}
		// A failed shared fetch fails every joined caller; the cycles
		// abort and retry on their own schedule rather than piling
		// immediate retries onto a struggling upstream.
		return call.data, call.err
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[url] = call
	c.mu <- struct{}{}

	call.data, call.err = c.inner.Fetch(ctx, url)
	close(call.done)

	<-c.mu
	delete(c.inflight, url)
	if call.err == nil {
		c.entries[url] = cacheEntry{data: call.data, fetchedAt: c.clock.Now()}
	}
	c.mu <- struct{}{}

	return call.data, call.err
}
