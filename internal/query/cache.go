package query

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/shared"
)

// Policy sets the freshness windows for an entry. An Expiry of zero keeps the entry until invalidated.
type Policy struct {
	Stale   time.Duration
	Expiry  time.Duration
	Retries int
}

func (p Policy) stale(age time.Duration) bool { return age >= p.Stale }

func (p Policy) expired(age time.Duration) bool { return p.Expiry > 0 && age >= p.Expiry }

// Fetcher performs the network read for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	policy    Policy
}

type call struct {
	done  chan struct{}
	value any
	err   error
}

// Cache holds resolved reads and the fetches currently in flight.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	inflight map[Key]*call
	fetches  sync.WaitGroup

	now       func() time.Time
	logger    *log.Logger
	retryable func(error) bool
}

// Option configures a [Cache].
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithRetryable decides which fetch errors are retried.
func WithRetryable(fn func(error) bool) Option {
	return func(c *Cache) { c.retryable = fn }
}

// DefaultRetryable retries everything except cancellation and rejected credentials.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, shared.ErrNotAuthenticated)
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[Key]*entry),
		inflight:  make(map[Key]*call),
		now:       time.Now,
		retryable: DefaultRetryable,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Get returns the value for key, fetching it when absent or expired.
//
// A stale entry is returned immediately and refreshed in the background. When the caller's context
// ends first, Get returns ctx.Err() and the fetch still completes and fills the cache.
func (c *Cache) Get(ctx context.Context, key Key, policy Policy, fetch Fetcher) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		age := c.now().Sub(e.fetchedAt)
		if !e.policy.expired(age) {
			if e.policy.stale(age) {
				if _, running := c.inflight[key]; !running {
					c.logger.Debug("stale, refreshing", "key", key, "age", age)
				}
				c.start(ctx, key, policy, fetch)
			} else {
				c.logger.Debug("hit", "key", key)
			}
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		c.logger.Debug("expired", "key", key, "age", age)
		delete(c.entries, key)
	}
	cl := c.start(ctx, key, policy, fetch)
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.value, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start joins the in-flight fetch for key or begins one. c.mu must be held.
func (c *Cache) start(ctx context.Context, key Key, policy Policy, fetch Fetcher) *call {
	if cl, ok := c.inflight[key]; ok {
		return cl
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.fetches.Add(1)
	go c.run(context.WithoutCancel(ctx), key, cl, policy, fetch)
	return cl
}

func (c *Cache) run(ctx context.Context, key Key, cl *call, policy Policy, fetch Fetcher) {
	defer c.fetches.Done()

	v, err := fetch(ctx)
	for attempt := 1; err != nil && attempt <= policy.Retries && c.retryable(err); attempt++ {
		c.logger.Debug("fetch failed, retrying", "key", key, "attempt", attempt, "error", err)
		v, err = fetch(ctx)
	}

	c.mu.Lock()
	if c.inflight[key] == cl {
		delete(c.inflight, key)
		if err == nil {
			c.entries[key] = &entry{value: v, fetchedAt: c.now(), policy: policy}
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("fetch failed", "key", key, "error", err)
	}

	cl.value, cl.err = v, err
	close(cl.done)
}

// Invalidate removes every entry matching any pattern and detaches matching in-flight fetches so their
// results are not stored. It returns how many entries were removed.
func (c *Cache) Invalidate(patterns ...Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if matchesAny(patterns, key) {
			delete(c.entries, key)
			removed++
		}
	}
	for key := range c.inflight {
		if matchesAny(patterns, key) {
			delete(c.inflight, key)
		}
	}

	if len(patterns) > 0 {
		c.logger.Debug("invalidated", "patterns", patterns, "removed", removed)
	}
	return removed
}

func matchesAny(patterns []Pattern, key Key) bool {
	for _, p := range patterns {
		if p.Matches(key) {
			return true
		}
	}
	return false
}

// Collect removes expired entries and returns how many were dropped.
func (c *Cache) Collect() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, e := range c.entries {
		if e.policy.expired(now.Sub(e.fetchedAt)) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// StartJanitor runs [Cache.Collect] every interval until ctx ends.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Collect(); n > 0 {
					c.logger.Debug("collected expired entries", "count", n)
				}
			}
		}
	}()
}

// Peek returns the stored value for key without fetching or checking freshness.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Pending reports whether a fetch for key is in flight.
func (c *Cache) Pending(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

// Wait blocks until every started fetch, including background refreshes, has finished.
func (c *Cache) Wait() {
	c.fetches.Wait()
}
