package jvsdk

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 45 * time.Second

// CacheStore is the short-lived in-memory response cache. Entries past the
// TTL are indistinguishable from absent. The clock is injected so tests can
// cross the TTL boundary without sleeping.
type CacheStore struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	payload   []byte
	writeTime time.Time
}

func NewCacheStore(ttl time.Duration, now func() time.Time) *CacheStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &CacheStore{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *CacheStore) Get(signature string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[signature]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.writeTime) >= c.ttl {
		delete(c.entries, signature)
		return nil, false
	}
	return entry.payload, true
}

func (c *CacheStore) Set(signature string, payload []byte) {
	c.mu.Lock()
	c.entries[signature] = cacheEntry{payload: payload, writeTime: c.now()}
	c.mu.Unlock()
}

// Invalidate drops exactly the given signatures, leaving everything else.
func (c *CacheStore) Invalidate(signatures ...string) {
	c.mu.Lock()
	for _, sig := range signatures {
		delete(c.entries, sig)
	}
	c.mu.Unlock()
}

// InvalidatePrefix drops every signature starting with prefix. Used for
// parameterized list endpoints where the exact query string is unknown.
func (c *CacheStore) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for sig := range c.entries {
		if strings.HasPrefix(sig, prefix) {
			delete(c.entries, sig)
		}
	}
	c.mu.Unlock()
}

func (c *CacheStore) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// requestSignature canonicalizes a request into a cache key: path plus the
// sorted, encoded query. Two requests for the same data always collide.
func requestSignature(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query.Get(k)))
	}
	return b.String()
}

// Coalescer folds concurrent identical GETs into a single network call.
// Latecomers share the first caller's result instead of issuing their own.
type Coalescer struct {
	group singleflight.Group
}

func (c *Coalescer) Do(signature string, fn func() ([]byte, error)) ([]byte, error) {
	v, err, _ := c.group.Do(signature, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	return data, nil
}
