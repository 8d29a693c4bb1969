// Package cache implements a bounded LRU cache for query results, keyed by
// a canonical filter signature and invalidated per project on writes.
//
// The cache is purely an optimization: reads must produce identical results
// whether the cache is disabled, sized to zero, or fully populated.
package cache

import (
	"container/list"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// DefaultCapacity is the entry limit used when no capacity is configured.
const DefaultCapacity = 100

// keySeparator joins the canonical key fields. Project ids and tags within
// one field are joined with commas.
const keySeparator = "|"

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Size     int
	Capacity int
	Hits     int64
	Misses   int64

	// HitRate is Hits / (Hits + Misses), 0 before any lookup.
	HitRate float64
}

type entry struct {
	key    string
	result *storage.RecallResult
}

// LRU is a capacity-bounded least-recently-used result cache.
//
// A single mutex guards the map and the recency list; all methods are safe
// for concurrent use.
type LRU struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	hits     int64
	misses   int64
}

// NewLRU creates a cache holding at most capacity entries. A capacity below
// 1 falls back to DefaultCapacity; size the cache to zero by simply not
// consulting it.
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &LRU{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// fieldEscaper neutralizes the key's structural characters inside field
// values. Without it a query or tag containing "|" or "," would shift the
// positional fields, letting one filter tuple mimic another and hiding
// entries from project invalidation.
var fieldEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\|`, ",", `\,`)

func escapeField(s string) string {
	return fieldEscaper.Replace(s)
}

// splitEscaped splits s on unescaped occurrences of sep, leaving the
// segments in their escaped form. Separator and escape bytes are ASCII, so
// byte-wise scanning is safe on UTF-8 input.
func splitEscaped(s string, sep byte) []string {
	var out []string
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// Key canonicalizes filters into a deterministic cache key. Two filter
// values with the same semantic content produce the same key regardless of
// how they were populated: project ids and tags are sorted, and an empty
// strategy normalizes to the auto tier it means. Every field is escaped
// before joining, so embedded separator characters never collide with the
// key structure.
func Key(filters *storage.SearchFilters) string {
	scope := make([]string, 0, len(filters.Scope()))
	for _, p := range filters.Scope() {
		scope = append(scope, escapeField(p))
	}
	sort.Strings(scope)

	tags := make([]string, 0, len(filters.Tags))
	for _, tag := range filters.Tags {
		tags = append(tags, escapeField(tag))
	}
	sort.Strings(tags)

	strategy := filters.Strategy
	if strategy == "" {
		strategy = storage.StrategyAuto
	}

	fields := []string{
		escapeField(filters.Query),
		strings.Join(scope, ","),
		escapeField(string(filters.Type)),
		escapeField(filters.SessionID),
		escapeField(string(strategy)),
		strconv.Itoa(filters.Limit),
		strconv.Itoa(filters.Offset),
		strings.Join(tags, ","),
	}
	return strings.Join(fields, keySeparator)
}

// Get looks up a cached result. On a hit the entry is promoted to most
// recently used and a copy tagged CacheHit is returned; the cached value
// itself is never handed out. Every call increments a hit or miss counter.
func (c *LRU) Get(key string) (*storage.RecallResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	c.hits++
	c.order.MoveToFront(elem)

	copied := *elem.Value.(*entry).result
	copied.Metrics.CacheHit = true
	return &copied, true
}

// Set inserts or updates an entry and promotes it to most recently used,
// evicting the least-recently-used entry when capacity is exceeded.
func (c *LRU) Set(key string, result *storage.RecallResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry).result = result
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, result: result})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

// InvalidateProject removes every entry whose key references projectID.
// Called after any write so stale results are never served. Returns the
// number of entries removed.
func (c *LRU) InvalidateProject(projectID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if keyReferencesProject(key, projectID) {
			c.order.Remove(elem)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// keyReferencesProject reports whether the key's project field contains
// projectID. The field may name several comma-joined projects when the
// query was widened to a group. Both sides stay in escaped form, so a
// separator inside the query or the project id cannot shift the field.
func keyReferencesProject(key, projectID string) bool {
	fields := splitEscaped(key, keySeparator[0])
	if len(fields) < 2 {
		return false
	}
	escaped := escapeField(projectID)
	for _, p := range splitEscaped(fields[1], ',') {
		if p == escaped {
			return true
		}
	}
	return false
}

// Clear removes every entry. Counters are preserved.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns a snapshot of size, capacity, and hit/miss counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:     c.order.Len(),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
