// Package cache keeps materialized query results keyed by normalized query
// text, bounded by a TTL per entry and an LRU limit on the entry count.
//
// Expiry is lazy: an expired entry is removed by the Get that finds it.
// There is no background goroutine.
package cache

import (
	"container/list"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxSize = 100
)

// Row is one result row: column name to JSON value.
type Row = map[string]any

// Result is a cached query result with the shape a fresh run reports.
type Result struct {
	Columns  []string
	Rows     []Row
	Pushed   int
	Residual int
}

func (r Result) clone() Result {
	r.Columns = slices.Clone(r.Columns)
	r.Rows = copyRows(r.Rows)
	return r
}

type entry struct {
	key         string
	result      Result
	createdAt   time.Time
	accessCount uint64
}

type QueryCache struct {
	mu sync.RWMutex

	ttl     time.Duration
	maxSize int
	now     func() time.Time

	order   *list.List // front is most recently used
	entries map[string]*list.Element

	hits   uint64
	misses uint64
}

type Option func(*QueryCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) { c.now = now }
}

// New creates a cache. A maxSize of zero or less stores nothing.
func New(ttl time.Duration, maxSize int, opts ...Option) *QueryCache {
	c := &QueryCache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[string]*list.Element, max(maxSize, 0)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func Default() *QueryCache {
	return New(DefaultTTL, DefaultMaxSize)
}

// Normalize trims surrounding whitespace and lowercases the whole query.
// Quoted literals are lowercased too, so queries differing only in literal
// case share one entry.
func Normalize(sql string) string {
	return strings.ToLower(strings.TrimSpace(sql))
}

// Get returns a copy of the rows cached under key.
func (c *QueryCache) Get(key string) ([]Row, bool) {
	r, ok := c.GetResult(key)
	return r.Rows, ok
}

// Put stores rows under key.
func (c *QueryCache) Put(key string, rows []Row) {
	c.PutResult(key, Result{Rows: rows})
}

// GetResult returns a copy of the result cached under key.
func (c *QueryCache) GetResult(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return Result{}, false
	}
	e := el.Value.(*entry)
	if c.now().Sub(e.createdAt) > c.ttl {
		c.removeElement(el)
		c.misses++
		return Result{}, false
	}

	e.accessCount++
	c.order.MoveToFront(el)
	c.hits++
	return e.result.clone(), true
}

// PutResult stores r under key, evicting the least recently used entry when
// a new key would exceed the size limit.
func (c *QueryCache) PutResult(key string, r Result) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.result = r.clone()
		e.createdAt = c.now()
		e.accessCount = 1
		c.order.MoveToFront(el)
		return
	}

	if len(c.entries) >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	e := &entry{key: key, result: r.clone(), createdAt: c.now(), accessCount: 1}
	c.entries[key] = c.order.PushFront(e)
}

// Clear drops every entry. Hit and miss counters are kept.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, max(c.maxSize, 0))
}

func (c *QueryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

type Stats struct {
	Entries       int    `json:"entries"`
	MaxSize       int    `json:"max_size"`
	TotalAccesses uint64 `json:"total_accesses"`
	TTLSeconds    uint64 `json:"ttl_seconds"`
}

type ExtendedStats struct {
	Stats
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
}

func (c *QueryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

func (c *QueryCache) statsLocked() Stats {
	var total uint64
	for _, el := range c.entries {
		total += el.Value.(*entry).accessCount
	}
	return Stats{
		Entries:       len(c.entries),
		MaxSize:       c.maxSize,
		TotalAccesses: total,
		TTLSeconds:    uint64(c.ttl / time.Second),
	}
}

// ExtendedStats adds the cumulative hit rate to Stats.
func (c *QueryCache) ExtendedStats() ExtendedStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := ExtendedStats{Stats: c.statsLocked(), Size: len(c.entries), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func copyRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
	}
	return out
}
