// Package clientutil builds the http.Client used for catalogue lookups out of small
// http.RoundTripper layers: caching, pacing, identification, logging and status mapping.
package clientutil

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

// Middleware decorates a transport.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain composes layers so the first one sees the request first.
func Chain(layers ...Middleware) Middleware {
	return func(rt http.RoundTripper) http.RoundTripper {
		for _, layer := range slices.Backward(layers) {
			rt = layer(rt)
		}
		return rt
	}
}

// Passthrough is the identity layer, used when an option is switched off.
func Passthrough(rt http.RoundTripper) http.RoundTripper { return rt }

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Wrap returns a copy of c with mw around its transport. A nil c means a default client.
func Wrap(c *http.Client, mw Middleware) *http.Client {
	var out http.Client
	if c != nil {
		out = *c
	}
	rt := out.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	out.Transport = mw(rt)
	return &out
}

// CacheTTL bounds how long a lookup response is reused, whatever the server's headers say.
const CacheTTL = 45 * time.Second

// WithCache honours HTTP caching headers, keeping responses in a fresh MemoryCache.
func WithCache() Middleware {
	store := NewMemoryCache(CacheTTL)
	return func(rt http.RoundTripper) http.RoundTripper {
		t := httpcache.NewTransport(store)
		t.Transport = rt
		return t
	}
}

// WithRateLimit spaces requests at least interval apart. Zero disables pacing.
func WithRateLimit(interval time.Duration) Middleware {
	if interval <= 0 {
		return Passthrough
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	return func(rt http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, fmt.Errorf("wait for rate limit: %w", err)
			}
			return rt.RoundTrip(r)
		})
	}
}

// WithUserAgent identifies trackdex to the remote service.
func WithUserAgent(userAgent string) Middleware {
	if userAgent == "" {
		return Passthrough
	}
	return func(rt http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			// a RoundTripper must not modify the caller's request
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", userAgent)
			return rt.RoundTrip(r)
		})
	}
}

// WithLogging records each exchange at debug level.
func WithLogging() Middleware {
	return func(rt http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := rt.RoundTrip(r)
			attrs := []any{"method", r.Method, "url", r.URL.Redacted(), "took", time.Since(start).Truncate(time.Millisecond)}
			if err != nil {
				slog.DebugContext(r.Context(), "lookup request failed", append(attrs, "err", err)...)
				return nil, err
			}
			slog.DebugContext(r.Context(), "lookup request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}

// WithStatusError fails requests answered with one of statuses, wrapping target, so the
// status survives client libraries that only report well-formed error bodies.
func WithStatusError(target error, statuses ...int) Middleware {
	return func(rt http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := rt.RoundTrip(r)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(statuses, resp.StatusCode) {
				return resp, nil
			}
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", target, resp.Status)
		})
	}
}

// MemoryCache is an httpcache.Cache whose entries are dropped ttl after being stored.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data   []byte
	stored time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, entries: map[string]cacheEntry{}}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.stored) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

func (c *MemoryCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.stored) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{data: data, stored: now}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
