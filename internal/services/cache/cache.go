// Package cache memoizes point-in-time query results per simulation context.
package cache

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Fingerprinter is implemented by values with a precomputed content hash.
type Fingerprinter interface {
	Fingerprint() string
}

type entry struct {
	value      any
	computedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache memo table shared by concurrent runs. Keys are namespaced by
// context id, so runs never see each other's entries.
//
// The cache does not observe ledger mutations: the owner of a context
// invalidates its namespace after appending to it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memoize returns the cached value for key or computes and stores it.
// A zero ttl never expires. fn runs outside the lock, concurrent misses on
// the same key may compute it twice and the last write wins.
func Memoize[T any](c *Cache, key string, fn func() T, ttl time.Duration) T {
	if v, ok := lookup[T](c, key, ttl); ok {
		return v
	}

	v := fn()

	c.mu.Lock()
	c.entries[key] = entry{value: v, computedAt: c.now()}
	c.mu.Unlock()

	return v
}

func lookup[T any](c *Cache, key string, ttl time.Duration) (T, bool) {
	var zero T

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if ttl > 0 && c.now().Sub(e.computedAt) > ttl {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// InvalidateNamespace removes every key of a namespace, usually a context id.
func (c *Cache) InvalidateNamespace(ns string) int {
	return c.InvalidatePrefix(ns + keySeparator)
}

// ClearExpired removes entries older than ttl.
func (c *Cache) ClearExpired(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.computedAt) > ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear removes everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const keySeparator = ":"

// NewKey builds "namespace:function:arg1:arg2...". Times are encoded as unix
// milliseconds, decimals as strings and series by their fingerprint.
func NewKey(ns, fn string, args ...any) string {
	var b strings.Builder
	b.WriteString(ns)
	b.WriteString(keySeparator)
	b.WriteString(fn)
	for _, a := range args {
		b.WriteString(keySeparator)
		b.WriteString(encodeArg(a))
	}
	return b.String()
}

func encodeArg(a any) string {
	switch v := a.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case decimal.Decimal:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case Fingerprinter:
		return v.Fingerprint()
	default:
		return fmt.Sprint(v)
	}
}
